// Package detect turns page interactions into normalized apply events. It
// gates on the clicked element looking like an apply control, then extracts
// the company name from the page with an ordered list of strategies.
package detect

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// applyKeywords is the fixed set of phrases an apply control's text must
// contain.
var applyKeywords = []string{
	"apply",
	"submit application",
	"quick apply",
	"1-click apply",
	"submit",
}

// excludedText is matched against the element's whole text; LinkedIn-style
// "Easy Apply" buttons fire on hover widgets and produce false positives.
const excludedText = "easy apply"

// Interaction describes the element a user interacted with.
type Interaction struct {
	TagName string // lowercase tag name
	Type    string // input type attribute
	Role    string // ARIA role attribute
	Href    string // anchor href
	Class   string // class attribute
	Text    string // visible text
}

// Event is a detected apply interaction.
type Event struct {
	CompanyName string `json:"companyName"`
	URL         string `json:"url"`
}

// IsApplyControl reports whether the element looks like an apply button and
// carries apply-ish text.
func IsApplyControl(in Interaction) bool {
	if !isInteractive(in) {
		return false
	}

	text := strings.ToLower(strings.TrimSpace(in.Text))
	if text == excludedText {
		return false
	}
	for _, kw := range applyKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func isInteractive(in Interaction) bool {
	tag := strings.ToLower(in.TagName)
	switch {
	case tag == "button":
		return true
	case strings.EqualFold(in.Role, "button"):
		return true
	case tag == "input" && strings.EqualFold(in.Type, "submit"):
		return true
	case tag == "a" && strings.Contains(strings.ToLower(in.Href), "apply"):
		return true
	case strings.Contains(strings.ToLower(in.Class), "apply"):
		return true
	}
	return false
}

// Detector extracts company names from pages using an ordered strategy list.
type Detector struct {
	strategies []Strategy
}

// New creates a detector with the default strategy order.
func New() *Detector {
	return &Detector{strategies: DefaultStrategies()}
}

// NewWithStrategies creates a detector with a custom strategy list.
func NewWithStrategies(strategies []Strategy) *Detector {
	return &Detector{strategies: strategies}
}

// Detect turns an interaction on a page into an apply event. The page URL is
// the tab's URL at interaction time, so SPA in-page navigations attribute
// correctly. It returns nil when the interaction is not an apply control or
// no strategy finds a company name.
func (d *Detector) Detect(doc *goquery.Document, in Interaction, pageURL string) *Event {
	if !IsApplyControl(in) {
		return nil
	}

	company := d.Company(doc)
	if company == "" {
		return nil
	}

	return &Event{CompanyName: company, URL: pageURL}
}

// Company returns the first non-empty company name produced by the
// strategies, in order.
func (d *Detector) Company(doc *goquery.Document) string {
	for _, s := range d.strategies {
		if name := s.Extract(doc); name != "" {
			return name
		}
	}
	return ""
}
