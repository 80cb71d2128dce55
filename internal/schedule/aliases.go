package schedule

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/salestax/internal/model"
)

// defaultAliases maps common place names onto the schedule's jurisdiction names.
var defaultAliases = map[string]string{
	"kings":         "Kings (Brooklyn)",
	"brooklyn":      "Brooklyn",
	"new york":      "New York (Manhattan)",
	"manhattan":     "Manhattan",
	"richmond":      "Richmond (Staten Island)",
	"staten island": "Staten Island",
}

var (
	countySuffix = regexp.MustCompile(`(?i)\s+county$`)
	subPrefix    = regexp.MustCompile(`(?i)^(city|town|village)\s+of\s+`)
)

// Aliases rewrites caller-supplied jurisdiction names. Keys are case-folded.
type Aliases struct {
	m map[string]string
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() *Aliases {
	a := &Aliases{m: make(map[string]string, len(defaultAliases))}
	for k, v := range defaultAliases {
		a.m[fold(k)] = v
	}
	return a
}

// LoadAliases reads a YAML mapping of name: canonical and merges it over the defaults.
func LoadAliases(r io.Reader) (*Aliases, error) {
	var overrides map[string]string
	if err := yaml.NewDecoder(r).Decode(&overrides); err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "schedule: decode aliases")
	}
	a := DefaultAliases()
	for k, v := range overrides {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		a.m[fold(k)] = v
	}
	return a, nil
}

// LoadAliasesFile reads alias overrides from path. An empty path yields the defaults.
func LoadAliasesFile(path string) (*Aliases, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, eris.Wrapf(err, "schedule: open aliases %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadAliases(f)
}

// Len returns the number of aliases.
func (a *Aliases) Len() int { return len(a.m) }

// Resolve returns the canonical name for name, or name itself when no alias exists.
func (a *Aliases) Resolve(name string) string {
	if a == nil {
		return name
	}
	if v, ok := a.m[fold(name)]; ok {
		return v
	}
	return name
}

// Normalizer turns caller-supplied place names into schedule keys.
type Normalizer struct {
	Aliases *Aliases
	NoLocal string
}

// Jurisdiction trims a trailing "County", applies aliases and maps an empty
// name to the no-local jurisdiction.
func (n Normalizer) Jurisdiction(raw string) string {
	s := strings.TrimSpace(countySuffix.ReplaceAllString(strings.TrimSpace(raw), ""))
	if s == "" {
		return n.NoLocal
	}
	return n.Aliases.Resolve(s)
}

// SubJurisdiction strips "City of"/"Town of"/"Village of" prefixes and maps an
// empty name to the sentinel.
func (n Normalizer) SubJurisdiction(raw string) string {
	s := strings.TrimSpace(subPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
	if s == "" {
		return model.NoSubJurisdiction
	}
	return s
}
