package contract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/barcheck/internal/httpclient"
)

const verifyTimeout = 10 * time.Second

// ContractError lists what the served page is missing
type ContractError struct {
	Version     string
	URL         string
	MissingIDs  []string
	MissingTabs []string
}

func (e *ContractError) Error() string {
	var parts []string
	if len(e.MissingIDs) > 0 {
		parts = append(parts, "missing ids: "+strings.Join(e.MissingIDs, ", "))
	}
	if len(e.MissingTabs) > 0 {
		parts = append(parts, "missing tab buttons: "+strings.Join(e.MissingTabs, ", "))
	}
	return fmt.Sprintf("page %s does not satisfy DOM contract %s (%s)", e.URL, e.Version, strings.Join(parts, "; "))
}

// Report is the outcome of a successful verification
type Report struct {
	Version  string
	URL      string
	Title    string
	Elements int
}

// Check verifies a parsed document against the contract
func (c Contract) Check(doc *goquery.Document, url string) (*Report, error) {
	ids := make(map[string]bool)
	doc.Find("[id]").Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok {
			ids[id] = true
		}
	})

	var missingTabs []string
	for _, tab := range c.Tabs {
		if doc.Find(tab.Button).Length() == 0 {
			missingTabs = append(missingTabs, tab.Name)
		}
	}

	missing := c.MissingIDs(ids)
	if len(missing) > 0 || len(missingTabs) > 0 {
		return nil, &ContractError{Version: c.Version, URL: url, MissingIDs: missing, MissingTabs: missingTabs}
	}

	return &Report{
		Version:  c.Version,
		URL:      url,
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Elements: len(ids),
	}, nil
}

// Verify fetches pageURL and checks the served HTML against the contract
// without a browser. Only RequiredIDs and tab buttons are checked; RuntimeIDs
// need a live page (see RuntimeCheckExpression).
func (c Contract) Verify(ctx context.Context, pageURL string) (*Report, error) {
	reqCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build contract request: %w", err)
	}

	resp, err := httpclient.NewLocalClient(verifyTimeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	return c.Check(doc, pageURL)
}
