package effects

import (
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/assets"
)

// DefaultCatalog returns the built-in providers in lookup order: blur,
// pixelate, bars, sticker, caption.
func DefaultCatalog(store assets.Store, log logrus.FieldLogger) Catalog {
	return Catalog{
		BlurProvider{},
		PixelateProvider{},
		BarsProvider{},
		NewStickerProvider(store, log),
		NewCaptionProvider(store, log),
	}
}
