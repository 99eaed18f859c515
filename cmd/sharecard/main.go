// Command sharecard renders a score card onto a screenshot and shares the
// score from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"

	"bubblepop/internal/capture"
	"bubblepop/internal/content"
	"bubblepop/internal/overlay"
	"bubblepop/internal/sharing"
	"bubblepop/internal/sysclip"

	"github.com/disintegration/imaging"
)

// printOpener stands in for a browser popup by printing the intent URL.
type printOpener struct{}

func (printOpener) Open(_ context.Context, url, _ string, _, _ int) (bool, error) {
	fmt.Println(url)
	return true, nil
}

func main() {
	var (
		input    = flag.String("in", "", "screenshot to decorate (PNG or JPEG)")
		output   = flag.String("out", "sharecard.png", "output file")
		score    = flag.Int("score", 0, "score to share")
		stage    = flag.Int("stage", 0, "stage reached")
		high     = flag.Bool("high", false, "mark as a new high score")
		preset   = flag.String("preset", "", "overlay preset: minimal, gaming, elegant")
		platform = flag.String("platform", "copy", "share platform: copy, twitter, facebook")
		lang     = flag.String("lang", "ja", "message language")
		link     = flag.String("url", "https://bubblepop.game/", "link to share")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("-in is required")
	}
	src, err := imaging.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *input, err)
	}

	ovOpts := []overlay.Option{}
	if *preset != "" {
		ovOpts = append(ovOpts, overlay.WithPreset(*preset))
	}
	ov, err := overlay.New(ovOpts...)
	if err != nil {
		log.Fatal(err)
	}
	defer ov.Close()

	capt := capture.New(capture.SourceFunc(func(context.Context) (image.Image, error) { return src, nil }),
		capture.WithOverlay(ov))
	defer capt.Cleanup()

	ctx := context.Background()
	res, err := capt.CaptureWithScoreOverlay(ctx, &overlay.ScoreData{Score: *score, Stage: *stage, IsHighScore: *high}, nil, capture.Options{})
	if err != nil {
		log.Fatalf("Failed to render card: %v", err)
	}
	if err := os.WriteFile(*output, res.Data, 0o644); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Card saved to %s (%dx%d)\n", *output, res.Width, res.Height)

	m := sharing.NewManager(
		sharing.WithGenerator(content.NewGenerator(content.Options{Language: *lang})),
		sharing.WithClipboard(sysclip.New()),
		sharing.WithWindowOpener(printOpener{}),
		sharing.WithShareURL(*link),
	)
	out := m.ShareScore(ctx, *score, sharing.ShareOptions{Platform: *platform, IsHighScore: *high, Stage: *stage})
	if !out.Success {
		log.Fatalf("Share via %s failed: %s", out.Method, out.Error)
	}
	log.Printf("Shared via %s\n", out.Method)
}
