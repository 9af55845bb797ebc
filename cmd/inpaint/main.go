package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"content-aware-fill/internal/config"
	"content-aware-fill/internal/imageio"
	"content-aware-fill/pkg/inpaint"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json or .toml)")
	imagePath := flag.String("image", "", "Input image")
	maskPath := flag.String("mask", "", "Mask image (fill where channel > threshold)")
	outPath := flag.String("out", "", "Output image (.png, .webp, .jpg, .bmp, .tiff)")
	radius := flag.Int("radius", 0, "Patch radius (default: 3)")
	iterations := flag.Int("iterations", 0, "PatchMatch iterations (default: 5)")
	seed := flag.Uint64("seed", 0, "Random seed (default: 1)")
	threshold := flag.Int("threshold", -1, "Mask threshold 0-255 (default: 128)")
	channel := flag.String("channel", "", "Mask channel r|g|b|a (default: r)")
	dilate := flag.Int("dilate", 0, "Grow the mask by N pixels")
	noBlend := flag.Bool("no-blend", false, "Copy one source pixel instead of blending candidates")
	topK := flag.Int("top-k", 0, "Candidates blended per pixel (default: 4)")
	space := flag.String("space", "", "Matching color space rgb|lab (default: rgb)")
	quality := flag.Int("quality", 0, "JPEG quality 1-100 (default: 90)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	if *imagePath == "" || *maskPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: inpaint -image in.png -mask mask.png -out out.png [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		Format:     strings.TrimPrefix(filepath.Ext(*outPath), "."),
		Radius:     *radius,
		Iterations: *iterations,
		Seed:       *seed,
		Channel:    *channel,
		Threshold:  *threshold,
		Dilate:     *dilate,
		NoBlend:    *noBlend,
		TopK:       *topK,
		Space:      *space,
		Quality:    *quality,
	})

	opts, err := cfg.Options()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.Logger = logger

	img, err := imageio.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading image: %v\n", err)
		os.Exit(1)
	}
	maskImg, err := imageio.Load(*maskPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading mask: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	out, err := inpaint.InpaintImageContext(ctx, img, maskImg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := imageio.Save(*outPath, out, cfg.JPEGQuality); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		os.Exit(1)
	}

	b := out.Bounds()
	fmt.Printf("Filled %dx%d in %.2fs -> %s\n", b.Dx(), b.Dy(), time.Since(start).Seconds(), *outPath)
}
