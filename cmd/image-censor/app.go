package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/assets"
	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/classifier"
	"github.com/ironsheep/image-censor/internal/config"
	"github.com/ironsheep/image-censor/internal/effects"
	"github.com/ironsheep/image-censor/internal/ocr"
)

// app holds the components built from a configuration.
type app struct {
	censorer   *censor.Censorer
	classifier classifier.Classifier
	store      assets.Store
}

// buildApp wires every component described by cfg.
func buildApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	store := buildStore(cfg)
	catalog := effects.DefaultCatalog(store, log)
	if err := cfg.CheckStyles(catalog); err != nil {
		return nil, err
	}

	parser, err := cfg.Parser()
	if err != nil {
		return nil, err
	}

	c := censor.New(catalog, cfg.Censor, log)
	c.Parser = parser
	c.SlowProvider = cfg.SlowProvider()
	c.Encoding = cfg.Encoding()
	c.Use(buildMiddleware(cfg, log)...)

	cl, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	return &app{censorer: c, classifier: cl, store: store}, nil
}

// buildStore returns the asset store: a directory tree for images, with
// captions from Redis when an address is configured.
func buildStore(cfg *config.Config) assets.Store {
	var images assets.Store = assets.EmptyStore{}
	if cfg.Assets.Dir != "" {
		images = assets.NewDirStore(cfg.Assets.Dir, nil)
	}
	if cfg.Assets.RedisAddr == "" {
		return images
	}
	client := assets.NewRedisClient(cfg.Assets.RedisAddr, cfg.Assets.RedisPassword, cfg.Assets.RedisDB)
	return assets.NewRedisCaptionStore(client, cfg.Assets.RedisPrefix, images)
}

func buildMiddleware(cfg *config.Config, log *logrus.Logger) []censor.Middleware {
	var mw []censor.Middleware
	if cfg.OCR.Enabled {
		if cfg.OCR.Heuristic {
			mw = append(mw, censor.TextRegionMiddleware{Label: cfg.OCR.Label, MinConfidence: cfg.OCR.MinConfidence})
		} else {
			info := ocr.GetInfo()
			if !info.Available {
				log.WithField("backend", info.Backend).Warn("OCR enabled but Tesseract is unavailable, using text-region heuristic")
				mw = append(mw, censor.TextRegionMiddleware{Label: cfg.OCR.Label, MinConfidence: cfg.OCR.MinConfidence})
			} else {
				log.WithField("version", info.Version).Debug("Tesseract OCR enabled")
				tess := ocr.NewTesseract(cfg.OCR.Language, cfg.OCR.TessdataPrefix)
				mw = append(mw, ocr.NewMiddleware(tess, cfg.OCR.Label, cfg.OCR.MinConfidence, log))
			}
		}
	}
	if cfg.Output.Watermark {
		mw = append(mw, censor.WatermarkMiddleware{})
	}
	return mw
}

// buildClassifier returns the Ollama classifier filtered by the match
// options, or nil when no Ollama URL is configured.
func buildClassifier(cfg *config.Config) (classifier.Classifier, error) {
	if cfg.Classifier.OllamaURL == "" {
		return nil, nil
	}
	o, err := classifier.NewOllamaClassifier(cfg.Classifier.OllamaURL, cfg.Classifier.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}
	return classifier.Filtered{Classifier: o, Match: cfg.Match}, nil
}
