package censor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/effects"
	codec "github.com/ironsheep/image-censor/internal/imaging"
	"github.com/ironsheep/image-censor/internal/logging"
)

// ErrNoImage is returned when a censoring run has no image to work on.
var ErrNoImage = errors.New("no image to censor")

// DefaultSlowProvider is the provider duration above which a warning is
// logged.
const DefaultSlowProvider = time.Second

// ImageResult is a decoded image together with the classifier's raw
// detections for it.
type ImageResult struct {
	Image image.Image

	// Format is the source format; the output is encoded in the same format
	// when it is set and in codec.DefaultFormat otherwise.
	Format codec.Format

	// Detections are in the image's own coordinate space.
	Detections []detection.Detection
}

// CensoredImage is the encoded output of a censoring run.
type CensoredImage struct {
	Bytes    []byte `json:"-"`
	MimeType string `json:"mime_type"`
	DataURL  string `json:"data_url"`
}

// Composite is the unencoded outcome of a censoring run.
type Composite struct {
	RequestID string

	// Image has bounds starting at (0, 0).
	Image *image.NRGBA

	// Detections are the detections that were censored, in processing
	// order, after transformers, middleware, clipping and sorting.
	Detections []detection.Detection

	// Mutations are in application order.
	Mutations []*effects.Mutation

	// Skipped counts detections whose style no provider supports.
	Skipped int

	Middleware []MiddlewareResult
}

// Censorer runs the compositing pipeline. A Censorer holds configuration
// only and is safe for concurrent use as long as its fields are not changed
// while it runs.
type Censorer struct {
	Providers  effects.Catalog
	Middleware []Middleware
	Options    effects.GlobalOptions

	// Parser is used when Censor is called without one. When both are nil
	// every label is blurred at level 10.
	Parser Parser

	// SlowProvider is the warning threshold for a single provider call,
	// DefaultSlowProvider when zero.
	SlowProvider time.Duration

	Encoding codec.EncodeOptions
	Log      logrus.FieldLogger
}

// New returns a Censorer with the given providers and options.
func New(providers effects.Catalog, opts effects.GlobalOptions, log logrus.FieldLogger) *Censorer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Censorer{
		Providers:    providers,
		Options:      opts,
		SlowProvider: DefaultSlowProvider,
		Log:          log,
	}
}

// Use appends middleware to the chain.
func (c *Censorer) Use(mw ...Middleware) *Censorer {
	c.Middleware = append(c.Middleware, mw...)
	return c
}

// Censor composites res and encodes the result.
func (c *Censorer) Censor(ctx context.Context, res ImageResult, parser Parser) (*CensoredImage, error) {
	comp, err := c.Composite(ctx, res, parser)
	if err != nil {
		return nil, err
	}
	return c.Encode(comp, res.Format)
}

// Encode encodes a composite in format, codec.DefaultFormat when empty.
func (c *Censorer) Encode(comp *Composite, format codec.Format) (*CensoredImage, error) {
	if comp == nil || comp.Image == nil {
		return nil, ErrNoImage
	}
	if format == "" {
		format = codec.DefaultFormat
	}
	data, err := codec.Encode(comp.Image, format, c.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode censored image: %w", err)
	}

	mime := format.MimeType()
	return &CensoredImage{
		Bytes:    data,
		MimeType: mime,
		DataURL:  codec.DataURL(mime, data),
	}, nil
}

// Composite runs every pipeline step except encoding:
//
//  1. detection transformers (merging, scaling)
//  2. middleware OnBeforeCensoring
//  3. clipping to the image and sorting by ascending area
//  4. spec resolution, provider lookup and mutation collection
//  5. applying mutations in ascending layer order
//  6. middleware OnAfterCensoring
func (c *Censorer) Composite(ctx context.Context, res ImageResult, parser Parser) (*Composite, error) {
	if res.Image == nil {
		return nil, ErrNoImage
	}
	parser = c.parser(parser)

	comp := &Composite{RequestID: uuid.NewString()}
	log := c.logger().WithField(logging.RequestIDKey, comp.RequestID)

	// Providers read from src and every change is deferred to the layer
	// stack; src is only drawn on once all providers have run.
	src := imaging.Clone(res.Image)
	bounds := src.Bounds()

	detections := toOrigin(res.Detections, res.Image.Bounds().Min)
	detections = detection.Apply(detections, detection.Transformers(detection.Options{
		AllowMerging:  c.Options.AllowMerging,
		RelativeScale: c.Options.RelativeScale,
	})...)

	var stack layerStack
	for _, mw := range c.Middleware {
		add := func(layer int, m *effects.Mutation) {
			if m != nil && m.Provider == "" {
				m.Provider = mw.Name()
			}
			stack.add(layer, m)
		}
		extra, err := runBefore(ctx, mw, src, parser, add)
		result := MiddlewareResult{Name: mw.Name(), Stage: StageBefore, Added: len(extra), Err: err}
		comp.Middleware = append(comp.Middleware, result)
		if err != nil {
			log.WithError(err).WithField("middleware", mw.Name()).Warn("Middleware failed before censoring")
			continue
		}
		detections = append(detections, extra...)
	}

	detections = detection.ClipToBounds(detections, bounds)
	detection.SortByArea(detections)

	for _, d := range detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		spec, ok := parser.CensorSpec(d.Label)
		if !ok {
			spec = DefaultSpec()
		}
		dlog := log.WithFields(logrus.Fields{"label": d.Label, "style": spec.Style, "level": spec.Level})

		provider := c.Providers.Find(spec.Style)
		if provider == nil {
			comp.Skipped++
			if spec.Style == NoneStyle {
				dlog.Debug("Label not censored")
			} else {
				dlog.Warn("No provider supports style, skipping detection")
			}
			continue
		}

		start := time.Now()
		m, err := provider.Censor(ctx, effects.Request{
			Image:     src,
			Detection: d,
			Spec:      spec,
			Options:   c.Options,
		})
		if elapsed := time.Since(start); elapsed > c.slowProvider() {
			dlog.WithFields(logrus.Fields{
				"provider": provider.Name(),
				"elapsed":  elapsed.String(),
			}).Warn("Slow censor provider")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to censor %s with %s: %w", d.Label, spec.Style, err)
		}

		comp.Detections = append(comp.Detections, d)
		if m == nil {
			continue
		}
		m.Provider = provider.Name()
		m.Label = d.Label
		layer := provider.Layer() + c.Options.ShiftFor(spec.Style, provider.Name())
		stack.add(layer, m)
		dlog.WithFields(logrus.Fields{"provider": provider.Name(), "layer": layer}).Debug("Mutation filed")
	}

	comp.Mutations = stack.ordered()
	out := src
	for _, m := range comp.Mutations {
		m.Apply(out)
	}

	for _, mw := range c.Middleware {
		after, err := runAfter(ctx, mw, out)
		comp.Middleware = append(comp.Middleware, MiddlewareResult{Name: mw.Name(), Stage: StageAfter, Err: err})
		if err != nil {
			log.WithError(err).WithField("middleware", mw.Name()).Warn("Middleware failed after censoring")
			continue
		}
		if after != nil {
			out = after
		}
	}

	comp.Image = out
	log.WithFields(logrus.Fields{
		"detections": len(comp.Detections),
		"mutations":  len(comp.Mutations),
		"skipped":    comp.Skipped,
	}).Debug("Censoring complete")
	return comp, nil
}

func (c *Censorer) parser(p Parser) Parser {
	if p != nil {
		return p
	}
	if c.Parser != nil {
		return c.Parser
	}
	return defaultParser{}
}

func (c *Censorer) slowProvider() time.Duration {
	if c.SlowProvider <= 0 {
		return DefaultSlowProvider
	}
	return c.SlowProvider
}

func (c *Censorer) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// toOrigin shifts detections so they are relative to an image whose bounds
// start at (0, 0).
func toOrigin(ds []detection.Detection, origin image.Point) []detection.Detection {
	out := detection.Clone(ds)
	if origin == (image.Point{}) {
		return out
	}
	for i := range out {
		out[i].Box.X -= origin.X
		out[i].Box.Y -= origin.Y
	}
	return out
}

// layerStack collects mutations with their layers in insertion order.
type layerStack []*effects.Mutation

func (s *layerStack) add(layer int, m *effects.Mutation) {
	if m == nil {
		return
	}
	m.Layer = layer
	*s = append(*s, m)
}

// ordered returns the mutations sorted by ascending layer, keeping insertion
// order within a layer.
func (s layerStack) ordered() []*effects.Mutation {
	out := make([]*effects.Mutation, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Layer < out[j].Layer })
	return out
}
