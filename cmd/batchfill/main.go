package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"content-aware-fill/internal/batch"
	"content-aware-fill/internal/config"
	"content-aware-fill/internal/imageio"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config file (.json or .toml)")
	writeConfig := flag.String("write-config", "", "Write the resolved settings as TOML to this path and exit")
	imageDir := flag.String("images", "", "Directory of input images")
	maskDir := flag.String("masks", "", "Directory of masks, matched to images by file name")
	sharedMask := flag.String("mask", "", "One mask applied to every image (overrides -masks)")
	outputDir := flag.String("output", "", "Output directory")
	manifest := flag.String("manifest", "", "JSON job list (overrides -images/-masks)")
	format := flag.String("format", "", "Output format png|webp|jpg|bmp|tiff (default: png)")
	testN := flag.Int("test", 0, "Process only the first N jobs")
	workers := flag.Int("workers", 0, "Number of concurrent jobs (default: NumCPU)")
	radius := flag.Int("radius", 0, "Patch radius (default: 3)")
	iterations := flag.Int("iterations", 0, "PatchMatch iterations (default: 5)")
	seed := flag.Uint64("seed", 0, "Random seed (default: 1)")
	threshold := flag.Int("threshold", -1, "Mask threshold 0-255 (default: 128)")
	channel := flag.String("channel", "", "Mask channel r|g|b|a (default: r)")
	dilate := flag.Int("dilate", 0, "Grow masks by N pixels")
	noBlend := flag.Bool("no-blend", false, "Copy one source pixel instead of blending candidates")
	topK := flag.Int("top-k", 0, "Candidates blended per pixel (default: 4)")
	space := flag.String("space", "", "Matching color space rgb|lab (default: rgb)")
	quality := flag.Int("quality", 0, "JPEG quality 1-100 (default: 90)")
	thumb := flag.Int("thumb", 0, "Also write thumbnails with this longer side")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

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
		ImageDir:   *imageDir,
		MaskDir:    *maskDir,
		OutputDir:  *outputDir,
		Format:     *format,
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
		Thumb:      *thumb,
		Workers:    *workers,
	})

	if *writeConfig != "" {
		if err := config.WriteTOML(*writeConfig, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config: %s\n", *writeConfig)
		return
	}

	opts, err := cfg.Options()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.Logger = logger

	// Collect jobs
	var jobs []batch.Job
	if *manifest != "" {
		jobs, err = batch.ReadJobs(*manifest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
			os.Exit(1)
		}
	} else {
		if cfg.ImageDir == "" || cfg.OutputDir == "" || (cfg.MaskDir == "" && *sharedMask == "") {
			fmt.Fprintln(os.Stderr, "Error: need -images, -output and -masks or -mask (or -manifest).")
			os.Exit(1)
		}
		images, err := imageio.BuildIndex(cfg.ImageDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error indexing images: %v\n", err)
			os.Exit(1)
		}
		var masks *imageio.Index
		if *sharedMask == "" {
			masks, err = imageio.BuildIndex(cfg.MaskDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error indexing masks: %v\n", err)
				os.Exit(1)
			}
		}
		var missing []string
		jobs, missing = batch.PairJobs(images, masks, *sharedMask, cfg.OutputDir, cfg.OutputFormat)
		fmt.Printf("Images: %d indexed, %d without mask\n", images.Len(), len(missing))
		for _, m := range missing {
			logger.Debug("no mask for image", "stem", m)
		}
	}

	// Limit for testing
	if *testN > 0 && *testN < len(jobs) {
		jobs = jobs[:*testN]
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs to process.")
		os.Exit(0)
	}

	fmt.Printf("Content-aware fill: %d jobs, Workers: %d\n", len(jobs), cfg.Workers)
	fmt.Printf("Radius %d, iterations %d, seed %d, space %s\n", opts.PatchRadius, opts.Iterations, opts.Seed, opts.Space)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	cache := batch.NewMaskCache()
	results, runErr := batch.Run(ctx, batch.Config{
		Options:     opts,
		Masks:       cache,
		JPEGQuality: cfg.JPEGQuality,
		ThumbSize:   cfg.ThumbSize,
		Workers:     cfg.Workers,
		Logger:      logger,
	}, jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs (%d masks decoded)\n", elapsed.Seconds(), cache.Len())

	// Count results
	success, failed := 0, 0
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Filled: %d/%d\n", success, len(jobs))

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := min(len(errors), 20)
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestDir := cfg.OutputDir
	if manifestDir == "" {
		manifestDir = "."
	}
	resultsPath := filepath.Join(manifestDir, "results.json")
	if err := batch.WriteManifest(resultsPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: results write failed: %v\n", err)
	} else {
		fmt.Printf("Results: %s\n", resultsPath)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Interrupted: %v\n", runErr)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
