package effects

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultLevel is the censor level used when none is given.
const DefaultLevel = 10

// MaxLevel is the strongest censor level.
const MaxLevel = 20

// Parameter keys understood by the built-in providers.
const (
	ParamCategories = "categories"
	ParamBackground = "background"
	ParamColor      = "color"
	ParamOutline    = "outline"
)

// Spec is the resolved instruction for censoring one detection.
type Spec struct {
	// Style is the lower-cased style token, e.g. "blur" or "sticker".
	Style string `json:"style"`

	// Level is the censor strength in [0, 20].
	Level int `json:"level"`

	// Parameters carries style options such as categories or colours.
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ParseSpec parses a style string of the form
//
//	style[:category1,category2][?key=value&key=value]
//
// Categories may also be separated by ';'. The level is clamped to
// [0, MaxLevel].
func ParseSpec(method string, level int) Spec {
	method = strings.TrimSpace(method)
	spec := Spec{Level: ClampLevel(level)}

	query := ""
	if i := strings.IndexByte(method, '?'); i >= 0 {
		query = method[i+1:]
		method = method[:i]
	}

	categories := ""
	if i := strings.IndexByte(method, ':'); i >= 0 {
		categories = method[i+1:]
		method = method[:i]
	}
	spec.Style = strings.ToLower(strings.TrimSpace(method))

	if query != "" {
		if values, err := url.ParseQuery(query); err == nil {
			for k, v := range values {
				if len(v) > 0 {
					spec.setParam(strings.ToLower(k), v[len(v)-1])
				}
			}
		}
	}
	if categories != "" {
		spec.setParam(ParamCategories, categories)
	}
	return spec
}

func (s *Spec) setParam(key, value string) {
	if s.Parameters == nil {
		s.Parameters = make(map[string]string)
	}
	s.Parameters[key] = value
}

// Param returns a parameter value, or "" when unset.
func (s Spec) Param(key string) string {
	return s.Parameters[key]
}

// Categories returns the category list, or nil when none was given.
func (s Spec) Categories() []string {
	raw := s.Parameters[ParamCategories]
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, c := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// String formats the spec back into its style string form, with the level
// appended as a parameter. Parameters are sorted for a stable result.
func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Style)
	if cats := s.Categories(); len(cats) > 0 {
		b.WriteByte(':')
		b.WriteString(strings.Join(cats, ","))
	}

	keys := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		if k != ParamCategories {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, s.Parameters[k])
	}
	values.Set("level", strconv.Itoa(s.Level))
	b.WriteByte('?')
	b.WriteString(values.Encode())
	return b.String()
}

// ClampLevel restricts a level to [0, MaxLevel].
func ClampLevel(level int) int {
	return min(max(level, 0), MaxLevel)
}
