// Package extract turns an extracted rate-table grid into a flat, deduplicated rate schedule.
package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	subTagPattern    = regexp.MustCompile(`(?i)\s*\(city\)\s*$`)
	exceptPattern    = regexp.MustCompile(`(?i)\s*[–\-]\s*except\s*$`)
	crossRefTemplate = `(?i)\s*[–\-]?\s*\bsee\s+%s\s*$`
)

// StripFootnote reports whether name starts with marker and returns the name without it.
func StripFootnote(name, marker string) (bool, string) {
	name = strings.TrimSpace(name)
	if marker == "" || !strings.HasPrefix(name, marker) {
		return false, name
	}
	return true, strings.TrimSpace(strings.TrimLeft(name, marker))
}

// TrimSubJurisdiction removes the trailing "(city)" tag from a sub-jurisdiction name.
func TrimSubJurisdiction(name string) string {
	return strings.TrimSpace(subTagPattern.ReplaceAllString(name, ""))
}

// TrimJurisdiction removes the trailing "– except" suffix from a jurisdiction header.
func TrimJurisdiction(name string) string {
	return strings.TrimSpace(exceptPattern.ReplaceAllString(name, ""))
}

// crossRef matches headers of the form "<name> – see <umbrella>".
type crossRef struct {
	pattern *regexp.Regexp
}

func newCrossRef(umbrella string) crossRef {
	return crossRef{pattern: regexp.MustCompile(fmt.Sprintf(crossRefTemplate, regexp.QuoteMeta(umbrella)))}
}

// Match reports whether header references the umbrella and returns the header with the
// reference suffix removed.
func (c crossRef) Match(header string) (bool, string) {
	loc := c.pattern.FindStringIndex(header)
	if loc == nil {
		return false, header
	}
	return true, strings.TrimSpace(header[:loc[0]])
}

// CrossReference reports whether header ends with "see <umbrella>" (case-insensitive) and
// returns the referring jurisdiction name.
func CrossReference(header, umbrella string) (bool, string) {
	return newCrossRef(umbrella).Match(header)
}
