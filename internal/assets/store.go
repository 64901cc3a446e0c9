// Package assets supplies the decorative material used by the sticker and
// caption effects.
//
// A Store hands out random stickers (encoded image bytes) and caption
// strings, optionally narrowed to a set of categories. Lookups that find
// nothing return ErrNotFound; callers treat that as "draw the background
// only" and never as a censoring failure.
//
// Implementations:
//   - EmptyStore: never has anything
//   - DirStore: reads a sticker/caption folder tree from disk
//   - RedisCaptionStore: captions from Redis sets, images from a fallback Store
package assets

import (
	"context"
	"errors"
)

// KindStickers is the asset kind requested by the sticker effect.
const KindStickers = "stickers"

// ErrNotFound is returned when no asset matches a lookup.
var ErrNotFound = errors.New("asset not found")

// Store is a source of random decorative assets.
type Store interface {
	// RandomCaption returns a caption from one of categories, or from any
	// category when categories is empty.
	RandomCaption(ctx context.Context, categories []string) (string, error)

	// RandomImage returns encoded image bytes of the given kind whose aspect
	// ratio is within tolerance of ratio (any ratio when ratio <= 0).
	RandomImage(ctx context.Context, kind string, ratio float64, categories []string) ([]byte, error)
}

// RatioMatches reports whether an asset's aspect ratio is close enough to
// the target: their quotient must lie in [0.75, 1.25]. A non-positive target
// matches everything.
func RatioMatches(assetRatio, target float64) bool {
	if target <= 0 {
		return true
	}
	if assetRatio <= 0 {
		return false
	}
	diff := assetRatio / target
	return diff >= 0.75 && diff <= 1.25
}

// EmptyStore is a Store with no assets.
type EmptyStore struct{}

// RandomCaption implements Store.
func (EmptyStore) RandomCaption(context.Context, []string) (string, error) {
	return "", ErrNotFound
}

// RandomImage implements Store.
func (EmptyStore) RandomImage(context.Context, string, float64, []string) ([]byte, error) {
	return nil, ErrNotFound
}
