package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// identificationMarkers are the fields the identifier is told to emit.
var identificationMarkers = []string{
	"**Common Name**",
	"**Scientific Name**",
	"**Confidence**",
	"**Visual Traits**",
	"**Potential Risk**",
}

// reportHeadings are the sections the advisor is told to emit, in order.
var reportHeadings = []string{
	HeadingIdentification,
	HeadingGuide,
	HeadingRemedies,
	HeadingSafety,
	HeadingAvoid,
	HeadingResources,
}

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s)\]>"']+`)
	mdLinkPattern   = regexp.MustCompile(`\[[^\]]*\]\(\s*https?://[^\s)]+\s*\)`)
	angleURLPattern = regexp.MustCompile(`<https?://[^>\s]+>`)
)

// maxResources is the number of URLs the researcher is asked for.
const maxResources = 10

// CheckIdentification reports identification fields that are absent.
func CheckIdentification(text string) []string {
	var warnings []string
	for _, m := range identificationMarkers {
		if !strings.Contains(text, m) {
			warnings = append(warnings, "identification is missing "+m)
		}
	}
	return warnings
}

// CheckResources reports a resource list with no URLs or more than ten.
func CheckResources(text string) []string {
	urls := ExtractURLs(text)
	switch {
	case len(urls) == 0:
		return []string{"research returned no URLs"}
	case len(urls) > maxResources:
		return []string{fmt.Sprintf("research returned %d URLs, expected at most %d", len(urls), maxResources)}
	}
	return nil
}

// CheckReport reports missing or out-of-order headings and raw URLs that
// are not wrapped in markdown links.
func CheckReport(text string) []string {
	var warnings []string

	last := -1
	for _, h := range reportHeadings {
		idx := headingIndex(text, h)
		switch {
		case idx < 0:
			warnings = append(warnings, "report is missing heading "+h)
		case idx < last:
			warnings = append(warnings, "report heading out of order: "+h)
		default:
			last = idx
		}
	}

	if n := len(RawURLs(text)); n > 0 {
		warnings = append(warnings, fmt.Sprintf("report contains %d raw URL(s)", n))
	}
	return warnings
}

// headingIndex finds h at the start of a line.
func headingIndex(text, h string) int {
	if strings.HasPrefix(text, h) {
		return 0
	}
	if i := strings.Index(text, "\n"+h); i >= 0 {
		return i + 1
	}
	return -1
}

// ExtractURLs returns every http(s) URL in text, de-duplicated in order
// of first appearance.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, u := range urlPattern.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:")
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// RawURLs returns URLs that appear outside markdown links.
func RawURLs(text string) []string {
	stripped := mdLinkPattern.ReplaceAllString(text, "")
	stripped = angleURLPattern.ReplaceAllString(stripped, "")
	return urlPattern.FindAllString(stripped, -1)
}
