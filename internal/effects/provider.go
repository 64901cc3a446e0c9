package effects

import (
	"context"
	"image"

	"github.com/ironsheep/image-censor/internal/detection"
)

// Request is everything a provider needs to censor one detection.
type Request struct {
	// Image is the unmodified source image, with bounds starting at (0, 0).
	Image image.Image

	// Detection is already clipped to the image bounds.
	Detection detection.Detection

	Spec    Spec
	Options GlobalOptions
}

// Provider computes the mutation for one censor style.
//
// Providers must be safe for concurrent use: they hold only immutable
// configuration and compute every mutation from the Request alone.
type Provider interface {
	// Name identifies the provider in logs and layer shifts.
	Name() string

	// Supports reports whether the provider handles a style token.
	Supports(style string) bool

	// Layer is the default layer for the provider's mutations.
	Layer() int

	// Censor returns the mutation for req. A nil mutation with a nil error
	// means there is nothing to draw, for example a box outside the image.
	Censor(ctx context.Context, req Request) (*Mutation, error)
}

// Catalog is an ordered provider list. The first provider supporting a style
// wins.
type Catalog []Provider

// Find returns the first provider supporting style, or nil.
func (c Catalog) Find(style string) Provider {
	for _, p := range c {
		if p.Supports(style) {
			return p
		}
	}
	return nil
}

// Names returns the provider names in order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return names
}
