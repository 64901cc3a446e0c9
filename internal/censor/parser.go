package censor

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/ironsheep/image-censor/internal/effects"
)

// NoneStyle is the style for labels that should be left alone. No provider
// supports it, so detections resolved to it are skipped.
const NoneStyle = "none"

// Parser resolves the censor spec for a detection label.
type Parser interface {
	// CensorSpec returns the spec for label. ok is false when the parser has
	// no opinion, letting a ChainParser or the pipeline default decide.
	CensorSpec(label string) (spec effects.Spec, ok bool)
}

// DefaultSpec is used when no parser resolves a label: blur at level 10.
func DefaultSpec() effects.Spec {
	return effects.Spec{Style: effects.NameBlur, Level: effects.DefaultLevel}
}

// defaultParser resolves every label to DefaultSpec.
type defaultParser struct{}

func (defaultParser) CensorSpec(string) (effects.Spec, bool) { return DefaultSpec(), true }

// StaticParser maps labels to fixed specs. Labels are matched
// case-insensitively. Unknown labels resolve to Default when it is set and to
// NoneStyle otherwise.
type StaticParser struct {
	Styles  map[string]effects.Spec
	Default *effects.Spec
}

// NewStaticParser builds a StaticParser from style strings and optional
// per-label levels (DefaultLevel when missing). An empty defaultStyle leaves
// unknown labels uncensored.
func NewStaticParser(styles map[string]string, levels map[string]int, defaultStyle string) *StaticParser {
	p := &StaticParser{Styles: make(map[string]effects.Spec, len(styles))}
	upperLevels := make(map[string]int, len(levels))
	for label, level := range levels {
		upperLevels[strings.ToUpper(label)] = level
	}

	for label, method := range styles {
		label = strings.ToUpper(label)
		level, ok := upperLevels[label]
		if !ok {
			level = effects.DefaultLevel
		}
		p.Styles[label] = effects.ParseSpec(method, level)
	}

	if defaultStyle != "" {
		spec := effects.ParseSpec(defaultStyle, effects.DefaultLevel)
		p.Default = &spec
	}
	return p
}

// CensorSpec implements Parser.
func (p *StaticParser) CensorSpec(label string) (effects.Spec, bool) {
	if spec, ok := p.Styles[strings.ToUpper(label)]; ok {
		return spec, true
	}
	if p.Default != nil {
		return *p.Default, true
	}
	return effects.Spec{Style: NoneStyle, Level: effects.DefaultLevel}, true
}

// Only returns a parser that resolves the labels in p.Styles and nothing
// else, so p can sit in front of another parser in a ChainParser.
func (p *StaticParser) Only() Parser { return onlyStyles{p} }

type onlyStyles struct{ p *StaticParser }

func (o onlyStyles) CensorSpec(label string) (effects.Spec, bool) {
	spec, ok := o.p.Styles[strings.ToUpper(label)]
	return spec, ok
}

// OverrideParser resolves labels from an override document of the form
//
//	{"FACE": ["pixelate", 12], "EYES": ["bars"]}
//
// The level is optional and defaults to DefaultLevel. Labels missing from the
// document are not resolved.
type OverrideParser struct {
	specs map[string]effects.Spec
}

// ParseOverrides parses an override document.
func ParseOverrides(data []byte) (*OverrideParser, error) {
	var raw map[string][]jsoniter.RawMessage
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}

	p := &OverrideParser{specs: make(map[string]effects.Spec, len(raw))}
	for label, entry := range raw {
		if len(entry) == 0 {
			return nil, fmt.Errorf("override for %q is empty", label)
		}

		var method string
		if err := jsoniter.Unmarshal(entry[0], &method); err != nil {
			return nil, fmt.Errorf("override for %q: style must be a string: %w", label, err)
		}

		level := effects.DefaultLevel
		if len(entry) > 1 {
			if err := jsoniter.Unmarshal(entry[1], &level); err != nil {
				return nil, fmt.Errorf("override for %q: level must be an integer: %w", label, err)
			}
		}
		p.specs[strings.ToUpper(label)] = effects.ParseSpec(method, level)
	}
	return p, nil
}

// LoadOverrideFile reads and parses an override file.
func LoadOverrideFile(path string) (*OverrideParser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read override file: %w", err)
	}
	return ParseOverrides(data)
}

// CensorSpec implements Parser.
func (p *OverrideParser) CensorSpec(label string) (effects.Spec, bool) {
	spec, ok := p.specs[strings.ToUpper(label)]
	return spec, ok
}

// Len returns the number of overridden labels.
func (p *OverrideParser) Len() int { return len(p.specs) }

// ChainParser asks each parser in order; the first to resolve a label wins.
type ChainParser []Parser

// CensorSpec implements Parser.
func (c ChainParser) CensorSpec(label string) (effects.Spec, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if spec, ok := p.CensorSpec(label); ok {
			return spec, true
		}
	}
	return effects.Spec{}, false
}

// Censors reports whether parser resolves label to a real style.
func Censors(parser Parser, label string) bool {
	if parser == nil {
		return false
	}
	spec, ok := parser.CensorSpec(label)
	return ok && spec.Style != "" && spec.Style != NoneStyle
}
