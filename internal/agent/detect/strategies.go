package detect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy extracts a company name from a page, returning "" on no match.
// Strategies are independent; the detector tries them in order and the first
// non-empty result wins.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document) string
}

// DefaultStrategies returns the extraction cascade, most specific first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		applyHeaderStrategy{},
		orgSelectorStrategy{},
		ogTitleStrategy{},
		companySelectorStrategy{},
		companyMetaStrategy{},
		logoAltStrategy{},
		brandLabelStrategy{},
	}
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// applyHeaderStrategy matches job-board apply headers like "Apply to Acme".
type applyHeaderStrategy struct{}

var applyToRe = regexp.MustCompile(`(?i)apply to (.+)`)

func (applyHeaderStrategy) Name() string { return "apply-header" }

func (applyHeaderStrategy) Extract(doc *goquery.Document) string {
	var found string
	doc.Find("h1, h2, h3, [class*=apply-header], [class*=jobs-apply]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if m := applyToRe.FindStringSubmatch(clean(sel.Text())); m != nil {
			found = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	return found
}

// orgSelectorStrategy tries organization-name selectors used by the major
// job boards.
type orgSelectorStrategy struct{}

var orgSelectors = []string{
	".topcard__org-name-link",
	".jobs-unified-top-card__company-name",
	"[data-company-name]",
	"[data-testid='inlineHeader-companyName']",
	".jobsearch-InlineCompanyRating div",
	".posting-categories .company",
}

func (orgSelectorStrategy) Name() string { return "org-selector" }

func (orgSelectorStrategy) Extract(doc *goquery.Document) string {
	for _, selector := range orgSelectors {
		if text := clean(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// ogTitleStrategy parses the OpenGraph title for a trailing "at Company".
type ogTitleStrategy struct{}

var atCompanyRe = regexp.MustCompile(`(?i)\bat (.+)$`)

func (ogTitleStrategy) Name() string { return "og-title" }

func (ogTitleStrategy) Extract(doc *goquery.Document) string {
	title, ok := doc.Find(`meta[property="og:title"]`).Attr("content")
	if !ok {
		return ""
	}
	if m := atCompanyRe.FindStringSubmatch(strings.TrimSpace(title)); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// companySelectorStrategy tries generic company-name classes and attributes.
type companySelectorStrategy struct{}

var companySelectors = []string{
	".company-name",
	".companyName",
	"[itemprop='hiringOrganization']",
	"[class*=company-name]",
	"[data-company]",
}

func (companySelectorStrategy) Name() string { return "company-selector" }

func (companySelectorStrategy) Extract(doc *goquery.Document) string {
	for _, selector := range companySelectors {
		if text := clean(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// companyMetaStrategy reads a generic company meta tag.
type companyMetaStrategy struct{}

func (companyMetaStrategy) Name() string { return "company-meta" }

func (companyMetaStrategy) Extract(doc *goquery.Document) string {
	for _, selector := range []string{`meta[name="company"]`, `meta[property="og:site_name"]`} {
		if content, ok := doc.Find(selector).Attr("content"); ok {
			if name := strings.TrimSpace(content); name != "" {
				return name
			}
		}
	}
	return ""
}

// logoAltStrategy finds an image whose alt text mentions a logo and strips
// the word "logo" from it.
type logoAltStrategy struct{}

var logoWordRe = regexp.MustCompile(`(?i)\s*\blogo\b\s*`)

func (logoAltStrategy) Name() string { return "logo-alt" }

func (logoAltStrategy) Extract(doc *goquery.Document) string {
	var found string
	doc.Find("img[alt]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		alt, _ := sel.Attr("alt")
		if !strings.Contains(strings.ToLower(alt), "logo") {
			return true
		}
		if name := clean(logoWordRe.ReplaceAllString(alt, " ")); name != "" {
			found = name
			return false
		}
		return true
	})
	return found
}

// brandLabelStrategy finds a "Brand:" label whose next sibling holds the
// company name.
type brandLabelStrategy struct{}

func (brandLabelStrategy) Name() string { return "brand-label" }

func (brandLabelStrategy) Extract(doc *goquery.Document) string {
	var found string
	doc.Find("span, dt, label, strong, b").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), "Brand:") {
			return true
		}
		if name := clean(sel.Next().Text()); name != "" {
			found = name
			return false
		}
		return true
	})
	return found
}
