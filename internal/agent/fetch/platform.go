package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job board platform.
type Platform string

const (
	// PlatformGreenhouse is the Greenhouse ATS platform
	PlatformGreenhouse Platform = "greenhouse"
	// PlatformLever is the Lever ATS platform
	PlatformLever Platform = "lever"
	// PlatformWorkday is the Workday ATS platform
	PlatformWorkday Platform = "workday"
	// PlatformLinkedIn is LinkedIn jobs
	PlatformLinkedIn Platform = "linkedin"
	// PlatformIndeed is Indeed
	PlatformIndeed Platform = "indeed"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the job board platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)
	switch {
	case strings.Contains(host, "greenhouse.io"):
		return PlatformGreenhouse
	case strings.Contains(host, "lever.co"):
		return PlatformLever
	case strings.Contains(host, "workday.com"), strings.Contains(host, "myworkdayjobs.com"):
		return PlatformWorkday
	case strings.Contains(host, "linkedin.com"):
		return PlatformLinkedIn
	case strings.Contains(host, "indeed.com"):
		return PlatformIndeed
	}
	return PlatformUnknown
}

// jobPathHints are URL path fragments that suggest a job posting page.
var jobPathHints = []string{"job", "career", "position", "opening", "apply", "vacanc"}

// LooksLikeJobPage reports whether a URL plausibly points at a job posting.
// Used to decide whether a SPA route change should re-prompt for tracking.
func LooksLikeJobPage(urlStr string) bool {
	if DetectPlatform(urlStr) != PlatformUnknown {
		return true
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, hint := range jobPathHints {
		if strings.Contains(path, hint) {
			return true
		}
	}
	return false
}

// ContentSelectors returns content selectors optimized for a platform.
func ContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{".job__description.body", ".job__description", "#content", ".job-post-container"}
	case PlatformLever:
		return []string{".posting-page", ".posting-description", ".content"}
	case PlatformWorkday:
		return []string{"[data-automation-id='jobDescription']", ".job-description"}
	case PlatformLinkedIn:
		return []string{".jobs-description__content", ".description__text"}
	case PlatformIndeed:
		return []string{"#jobDescriptionText", ".jobsearch-JobComponent-description"}
	default:
		return []string{
			".job-description",
			".job-content",
			"#job-description",
			".posting-content",
			".job-details",
			"main",
			"article",
			".content",
			"#content",
		}
	}
}
