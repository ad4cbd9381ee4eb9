package contract

// BarcodeType is one option of #barcodeType and how the application renders it
type BarcodeType struct {
	Name        string // Option value in #barcodeType
	Label       string // User-facing name used in application messages
	Encoder     string // Encoder id the application hands to its rendering library
	Square      bool   // Output container gets square-barcode-container
	TwoD        bool
	SampleInput string // Input the application accepts for this type
}

// HumanReadable reports whether the type supports printing its text below the bars
func (t BarcodeType) HumanReadable() bool {
	return !t.TwoD
}

// BarcodeTypes is the pinned mapping. Only codabar is renamed; every other
// type is passed to the encoder unchanged.
var BarcodeTypes = []BarcodeType{
	{Name: "qrcode", Label: "QR Code", Encoder: "qrcode", Square: true, TwoD: true, SampleInput: "Test QR Code"},
	{Name: "datamatrix", Label: "Data Matrix", Encoder: "datamatrix", Square: true, TwoD: true, SampleInput: "Test QR Code"},
	{Name: "pdf417", Label: "PDF417", Encoder: "pdf417", TwoD: true, SampleInput: "Test QR Code"},
	{Name: "azteccode", Label: "Aztec Code", Encoder: "azteccode", Square: true, TwoD: true, SampleInput: "Test QR Code"},
	{Name: "ean13", Label: "EAN-13", Encoder: "ean13", SampleInput: "123456789012"},
	{Name: "ean8", Label: "EAN-8", Encoder: "ean8", SampleInput: "1234567"},
	{Name: "upca", Label: "UPC-A", Encoder: "upca", SampleInput: "12345678901"},
	{Name: "upce", Label: "UPC-E", Encoder: "upce", SampleInput: "123456"},
	{Name: "code39", Label: "CODE 39", Encoder: "code39", SampleInput: "TEST123"},
	{Name: "code128", Label: "CODE 128", Encoder: "code128", SampleInput: "Test123"},
	{Name: "interleaved2of5", Label: "ITF", Encoder: "interleaved2of5", SampleInput: "12345678"},
	{Name: "codabar", Label: "CODABAR", Encoder: "rationalizedCodabar", SampleInput: "A123456789B"},
}

// Lookup returns the pinned entry for a #barcodeType value
func Lookup(name string) (BarcodeType, bool) {
	for _, t := range BarcodeTypes {
		if t.Name == name {
			return t, true
		}
	}
	return BarcodeType{}, false
}
