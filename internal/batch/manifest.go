package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"content-aware-fill/internal/imageio"
)

// ReadJobs reads a JSON array of jobs. Relative paths are taken relative
// to the manifest's directory; a missing name defaults to the image stem.
func ReadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}
	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("batch: parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range jobs {
		j := &jobs[i]
		if j.Image == "" || j.Mask == "" || j.Output == "" {
			return nil, fmt.Errorf("batch: %s: job %d needs image, mask and output", path, i)
		}
		j.Image = resolve(base, j.Image)
		j.Mask = resolve(base, j.Mask)
		j.Output = resolve(base, j.Output)
		if j.Name == "" {
			j.Name = stem(j.Image)
		}
	}
	return jobs, nil
}

// PairJobs matches every image in images with the mask of the same stem.
// When sharedMask is set, it is used for every image instead.
// Images without a mask are returned as missing.
func PairJobs(images, masks *imageio.Index, sharedMask, outputDir, format string) (jobs []Job, missing []string) {
	for _, s := range images.Stems() {
		imgPath, _ := images.ResolvePath(s)

		maskPath := sharedMask
		if maskPath == "" {
			var ok bool
			if masks != nil {
				maskPath, ok = masks.ResolvePath(s)
			}
			if !ok {
				missing = append(missing, s)
				continue
			}
		}

		jobs = append(jobs, Job{
			Name:   s,
			Image:  imgPath,
			Mask:   maskPath,
			Output: filepath.Join(outputDir, s+"."+format),
		})
	}
	return jobs, missing
}

// WriteManifest writes the results as indented JSON.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func stem(p string) string {
	b := filepath.Base(p)
	return b[:len(b)-len(filepath.Ext(b))]
}
