package main

import (
	"flag"
	"fmt"
	"os"

	"content-aware-fill/internal/config"
	"content-aware-fill/internal/imageio"
	"content-aware-fill/internal/mask"
)

func main() {
	maskPath := flag.String("mask", "", "Mask image")
	threshold := flag.Int("threshold", mask.DefaultThreshold, "Mask threshold 0-255")
	channel := flag.String("channel", "r", "Mask channel r|g|b|a")
	dilate := flag.Int("dilate", 0, "Grow the mask by N pixels before measuring")
	limit := flag.Int("regions", 20, "Print at most N regions")
	flag.Parse()

	if *maskPath == "" && flag.NArg() > 0 {
		*maskPath = flag.Arg(0)
	}
	if *maskPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: maskinfo [-threshold N] [-channel c] mask.png")
		os.Exit(2)
	}
	if *threshold < 0 || *threshold > 255 {
		fmt.Fprintf(os.Stderr, "Error: threshold %d outside 0-255\n", *threshold)
		os.Exit(1)
	}
	ch, err := config.ParseChannel(*channel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	img, err := imageio.Load(*maskPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	b := img.Bounds()
	field, err := mask.FromRGBA(img.Pix, b.Dx(), b.Dy(), mask.Options{
		Channel:   ch,
		Threshold: uint8(*threshold),
		Dilate:    *dilate,
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	regions := mask.Regions(field)
	fmt.Printf("Mask: %s\n", *maskPath)
	fmt.Printf("Size: %d x %d\n", field.Width(), field.Height())
	fmt.Printf("Fill: %d pixels (%.2f%%)\n", field.Count(), 100*field.Coverage())
	fmt.Printf("Regions: %d\n", len(regions))
	for i, r := range regions {
		if i >= *limit {
			fmt.Printf("  ... %d more\n", len(regions)-i)
			break
		}
		fmt.Printf("  [%d] %d px, bounds %v\n", i, r.Size, r.Bounds)
	}
	if field.Count() == field.Width()*field.Height() {
		fmt.Println("Warning: every pixel is masked; inpainting has no source pixels.")
	}
}
