package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-censor/internal/censor"
	"github.com/ironsheep/image-censor/internal/classifier"
	"github.com/ironsheep/image-censor/internal/config"
	"github.com/ironsheep/image-censor/internal/detection"
	"github.com/ironsheep/image-censor/internal/imaging"
	"github.com/ironsheep/image-censor/internal/logging"
	"github.com/ironsheep/image-censor/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("image-censor %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp(os.Stdout)
			return
		case "serve", "censor", "init-config":
			cmd = args[0]
			args = args[1:]
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "censor":
		err = runCensor(ctx, args)
	case "init-config":
		err = runInitConfig(args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-censor: %v\n", err)
		os.Exit(1)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "image-censor - censor labelled regions of images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  image-censor [serve] [-config path]          Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  image-censor censor -in img -out img [...]   Censor one image")
	fmt.Fprintln(w, "  image-censor init-config [-config path]      Write the default config file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (also read from .env):")
	fmt.Fprintln(w, "  IMAGE_CENSOR_LOG_LEVEL=debug        Log level")
	fmt.Fprintln(w, "  IMAGE_CENSOR_LOG_FILE=path          Also log to a rotating file")
	fmt.Fprintln(w, "  IMAGE_CENSOR_ASSETS_DIR=path        Sticker and caption assets")
	fmt.Fprintln(w, "  IMAGE_CENSOR_REDIS_ADDR=host:port   Serve captions from Redis")
	fmt.Fprintln(w, "  IMAGE_CENSOR_OLLAMA_URL=url         Vision classifier endpoint")
	fmt.Fprintln(w, "  IMAGE_CENSOR_MODEL=name             Vision classifier model")
	fmt.Fprintln(w, "  IMAGE_CENSOR_OCR_ENABLED=true       Censor recognized text")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The server communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// setup loads the configuration and builds the logger and app.
func setup(configPath string) (*config.Config, *logrus.Logger, func() error, *app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	a, err := buildApp(cfg, log)
	if err != nil {
		closeLog()
		return nil, nil, nil, nil, err
	}
	return cfg, log, closeLog, a, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (JSON)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, log, closeLog, a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	log.WithFields(logrus.Fields{
		"version":   Version,
		"built":     BuildTime,
		"commit":    GitCommit,
		"providers": a.censorer.Providers.Names(),
	}).Info("Image censor MCP server starting")

	srv := server.New(server.Options{
		Censorer:   a.censorer,
		Classifier: a.classifier,
		Version:    Version,
		Log:        log,
	})
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runCensor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("censor", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (JSON)")
	in := fs.String("in", "", "input image path (png/jpg/gif/webp)")
	out := fs.String("out", "", "output image path; the extension picks the format")
	detections := fs.String("detections", "", "JSON file of detections: [{\"label\", \"confidence\", \"box\": [x1, y1, x2, y2]}]")
	detect := fs.Bool("detect", false, "also run the configured vision classifier")
	debug := fs.String("debug", "", "also write the source image with the censored detections outlined")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("usage: %s censor -in input.png -out output.png [-detections detections.json] [-detect]", filepath.Base(os.Args[0]))
	}

	cfg, log, closeLog, a, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	src, err := imaging.NewImageCache().Load(*in)
	if err != nil {
		return err
	}

	var found []classifier.Classifier
	if *detections != "" {
		found = append(found, classifier.Filtered{Classifier: classifier.FileSource{Path: *detections}, Match: cfg.Match})
	}
	if *detect {
		if a.classifier == nil {
			return server.ErrNoClassifier
		}
		found = append(found, a.classifier)
	}

	res := censor.ImageResult{Image: src.Image, Format: src.Format}
	for _, c := range found {
		ds, err := c.Detect(ctx, src.Image)
		if err != nil {
			return err
		}
		res.Detections = append(res.Detections, ds...)
	}

	if f, err := imaging.ParseFormat(filepath.Ext(*out)); err == nil {
		res.Format = f
	}

	comp, err := a.censorer.Composite(ctx, res, nil)
	if err != nil {
		return err
	}
	encoded, err := a.censorer.Encode(comp, res.Format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, encoded.Bytes, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if *debug != "" {
		if err := writeDebug(*debug, src.Image, comp.Detections); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		logging.RequestIDKey: comp.RequestID,
		"detections":         len(comp.Detections),
		"mutations":          len(comp.Mutations),
		"skipped":            comp.Skipped,
		"out":                *out,
	}).Info("Image censored")
	return nil
}

// writeDebug outlines detections on img and writes it to path as PNG.
func writeDebug(path string, img image.Image, detections []detection.Detection) error {
	boxes := make([]imaging.Box, 0, len(detections))
	for _, d := range detections {
		boxes = append(boxes, imaging.Box{
			Rect:    d.Box.Image().Add(img.Bounds().Min),
			Caption: fmt.Sprintf("%.2f", d.Confidence),
		})
	}
	out := imaging.Annotate(img, boxes, color.NRGBA{255, 0, 255, 255}, 2)
	data, err := imaging.Encode(out, imaging.FormatPNG, imaging.EncodeOptions{})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write debug image: %w", err)
	}
	return nil
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	configPath := fs.String("config", config.Path(), "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*configPath); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *configPath)
	}
	if err := config.Default().SaveToFile(*configPath); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
	return nil
}
