package models

// StepKind represents the action an interaction step performs.
type StepKind string

// StepKind constants define all supported declarative step kinds
const (
	StepKindNavigate            StepKind = "navigate"
	StepKindSelect              StepKind = "select"
	StepKindFill                StepKind = "fill"
	StepKindClick               StepKind = "click"
	StepKindWait                StepKind = "wait"
	StepKindWaitHidden          StepKind = "wait_hidden"
	StepKindEvaluate            StepKind = "evaluate"
	StepKindScreenshot          StepKind = "screenshot"
	StepKindUpload              StepKind = "upload"
	StepKindSleep               StepKind = "sleep"
	StepKindExpectVisible       StepKind = "expect_visible"
	StepKindExpectHidden        StepKind = "expect_hidden"
	StepKindExpectText          StepKind = "expect_text"
	StepKindExpectClass         StepKind = "expect_class"
	StepKindExpectNoClass       StepKind = "expect_no_class"
	StepKindExpectTruthy        StepKind = "expect_truthy"
	StepKindExpectCanvasContent StepKind = "expect_canvas_content"
)

// IsValid checks if the StepKind is a known, valid kind
func (k StepKind) IsValid() bool {
	for _, kind := range AllStepKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// IsAssertion reports whether the step records an assertion rather than acting on the page
func (k StepKind) IsAssertion() bool {
	switch k {
	case StepKindExpectVisible, StepKindExpectHidden, StepKindExpectText, StepKindExpectClass,
		StepKindExpectNoClass, StepKindExpectTruthy, StepKindExpectCanvasContent:
		return true
	}
	return false
}

// String returns the string representation of the StepKind
func (k StepKind) String() string {
	return string(k)
}

// AllStepKinds returns a slice of all valid StepKind values
func AllStepKinds() []StepKind {
	return []StepKind{
		StepKindNavigate,
		StepKindSelect,
		StepKindFill,
		StepKindClick,
		StepKindWait,
		StepKindWaitHidden,
		StepKindEvaluate,
		StepKindScreenshot,
		StepKindUpload,
		StepKindSleep,
		StepKindExpectVisible,
		StepKindExpectHidden,
		StepKindExpectText,
		StepKindExpectClass,
		StepKindExpectNoClass,
		StepKindExpectTruthy,
		StepKindExpectCanvasContent,
	}
}
