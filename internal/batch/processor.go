package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"content-aware-fill/internal/imageio"
	"content-aware-fill/pkg/inpaint"

	"golang.org/x/sync/errgroup"
)

// Job is one image to fill.
type Job struct {
	Name   string `json:"name"`
	Image  string `json:"image"`
	Mask   string `json:"mask"`
	Output string `json:"output"`
}

// Config holds all shared resources for a batch run.
type Config struct {
	Options     inpaint.Options
	Masks       MaskSource // nil loads every mask from disk
	JPEGQuality int
	ThumbSize   int // > 0 also writes a thumbnail next to each output
	Workers     int
	Logger      *slog.Logger
}

// Result holds the outcome of processing one job.
type Result struct {
	Name      string  `json:"name"`
	Output    string  `json:"output,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	Seconds   float64 `json:"seconds"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
}

// Run processes all jobs with at most cfg.Workers running at once.
// A failed job is recorded in its Result and does not stop the others.
// The returned error is non-nil only when ctx was cancelled; results for
// jobs that never started carry the cancellation error.
func Run(ctx context.Context, cfg Config, jobs []Job) ([]Result, error) {
	log := cfg.Logger
	if log == nil {
		log = inpaint.Logger()
	}
	masks := cfg.Masks
	if masks == nil {
		masks = uncached{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("batch: progress", "done", p, "total", total, "per_sec", rate)
				}
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range jobs {
		if err := gctx.Err(); err != nil {
			for j := i; j < total; j++ {
				results[j] = Result{Name: jobs[j].Name, Error: err.Error()}
			}
			break
		}
		g.Go(func() error {
			results[i] = processJob(gctx, cfg, masks, jobs[i])
			processed.Add(1)
			if !results[i].Success {
				log.Warn("batch: job failed", "name", jobs[i].Name, "error", results[i].Error)
			}
			return nil
		})
	}

	err := g.Wait()
	close(done)
	if err == nil {
		err = ctx.Err()
	}
	return results, err
}

func processJob(ctx context.Context, cfg Config, masks MaskSource, job Job) Result {
	start := time.Now()
	fail := func(err error) Result {
		return Result{Name: job.Name, Error: err.Error(), Seconds: time.Since(start).Seconds()}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if _, err := os.Stat(job.Image); err != nil {
		return fail(fmt.Errorf("image not found: %s", job.Image))
	}

	img, err := imageio.Load(job.Image)
	if err != nil {
		return fail(err)
	}
	m, err := masks.Mask(job.Mask)
	if err != nil {
		return fail(err)
	}

	out, err := inpaint.InpaintImageContext(ctx, img, m, cfg.Options)
	if err != nil {
		return fail(err)
	}

	if err := imageio.Save(job.Output, out, cfg.JPEGQuality); err != nil {
		return fail(err)
	}

	var thumb string
	if cfg.ThumbSize > 0 {
		thumb = imageio.ThumbnailPath(job.Output)
		if err := imageio.Save(thumb, imageio.Thumbnail(out, cfg.ThumbSize), cfg.JPEGQuality); err != nil {
			return fail(err)
		}
		thumb = filepath.ToSlash(thumb)
	}

	b := out.Bounds()
	return Result{
		Name:      job.Name,
		Output:    filepath.ToSlash(job.Output),
		Thumbnail: thumb,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Seconds:   time.Since(start).Seconds(),
		Success:   true,
	}
}
