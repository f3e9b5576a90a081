package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/reelgen/internal/compose"
	"github.com/forPelevin/reelgen/internal/domain/scenes"
	"github.com/forPelevin/reelgen/internal/domain/script"
	"github.com/forPelevin/reelgen/internal/domain/topics"
	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
)

type Deps struct {
	Script ports.ScriptWriter
	Covers ports.CoverPrompter
	Images ports.ImageGenerator
	Speech ports.SpeechSynthesizer
	Media  ports.MediaTool
	Retry  retry.Policy
	Log    logrus.FieldLogger
}

type Usecase struct {
	d        Deps
	log      logrus.FieldLogger
	composer *compose.Composer
}

func New(d Deps) Usecase {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if d.Retry.Logger == nil {
		d.Retry.Logger = log
	}
	return Usecase{d: d, log: log, composer: compose.New(d.Media, log)}
}

type Input struct {
	Topic       types.Topic
	ScenesCount int
	TotalSec    int
	OutDir      string
	// ImageSize is passed to the image generator; empty means its default.
	ImageSize string
	Cleanup   bool
}

type Result struct {
	Topic   types.Topic
	Scenes  []types.EnrichedScene
	Video   types.RenderedVideo
	Outputs types.Outputs
}

// Run produces one narrated video for in.Topic. Steps run strictly in order
// and the first step that exhausts its retries aborts the run; files written
// so far stay on disk.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	if in.OutDir == "" {
		return Result{}, errors.New("output directory is empty")
	}
	audioDir := filepath.Join(in.OutDir, "audio")
	imagesDir := filepath.Join(in.OutDir, "images")
	metaDir := filepath.Join(in.OutDir, "meta")
	for _, dir := range []string{audioDir, imagesDir, metaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	log := u.log.WithField("topic", in.Topic.ID)
	if err := writeJSON(filepath.Join(metaDir, "topic.json"), in.Topic); err != nil {
		return Result{}, err
	}

	log.Info("generating script")
	raw, err := retry.Do(ctx, u.d.Retry, "generate script", func(ctx context.Context) ([]types.Scene, error) {
		got, err := u.d.Script.WriteScript(ctx, ports.ScriptRequest{
			Topic:       in.Topic,
			ScenesCount: in.ScenesCount,
			TotalSec:    in.TotalSec,
		})
		if err != nil {
			return nil, err
		}
		// the duration floor only holds for the scene count that was validated
		if in.ScenesCount > 0 && len(got) != in.ScenesCount {
			return nil, fmt.Errorf("%w: got %d scenes, want %d", script.ErrShape, len(got), in.ScenesCount)
		}
		return got, nil
	})
	if err != nil {
		return Result{}, err
	}
	plan := scenes.Normalize(raw, in.TotalSec)
	log.WithField("scenes", len(plan)).Info("script ready")

	enriched := make([]types.EnrichedScene, 0, len(plan))
	for i, s := range plan {
		audioPath := filepath.Join(audioDir, s.ID+".mp3")
		imagePath := filepath.Join(imagesDir, s.ID+".png")
		log.WithFields(logrus.Fields{"scene": s.ID, "n": i + 1, "of": len(plan)}).Info("rendering scene assets")

		err := retry.Run(ctx, u.d.Retry, "synthesize audio "+s.ID, func(ctx context.Context) error {
			return u.d.Speech.Synthesize(ctx, ports.SpeechRequest{
				Text:        s.Text,
				DurationSec: s.Duration,
				OutFile:     audioPath,
			})
		})
		if err != nil {
			return Result{}, err
		}
		if err := u.image(ctx, "generate image "+s.ID, s.Visual, in.ImageSize, imagePath); err != nil {
			return Result{}, err
		}
		enriched = append(enriched, types.EnrichedScene{Scene: s, AudioPath: audioPath, ImagePath: imagePath})
	}

	if err := writeJSON(filepath.Join(metaDir, "script.json"), plan); err != nil {
		return Result{}, err
	}

	name := topics.VideoName(in.Topic)

	log.Info("generating cover prompts")
	covers, err := retry.Do(ctx, u.d.Retry, "generate cover prompts", func(ctx context.Context) (types.CoverPrompts, error) {
		return u.d.Covers.CoverPrompts(ctx, in.Topic)
	})
	if err != nil {
		return Result{}, err
	}
	if err := writeJSON(filepath.Join(metaDir, "covers.json"), covers); err != nil {
		return Result{}, err
	}

	previewPNG := filepath.Join(imagesDir, name+"-preview.png")
	thumbnailPNG := filepath.Join(imagesDir, name+"-thumbnail.png")
	if err := u.image(ctx, "generate preview image", covers.PreviewPrompt, in.ImageSize, previewPNG); err != nil {
		return Result{}, err
	}
	if err := u.image(ctx, "generate thumbnail image", covers.ThumbnailPrompt, in.ImageSize, thumbnailPNG); err != nil {
		return Result{}, err
	}

	previewJPG := filepath.Join(in.OutDir, name+"-preview.jpg")
	thumbnailJPG := filepath.Join(in.OutDir, name+"-thumbnail.jpg")
	if err := u.convert(ctx, "convert preview", previewPNG, previewJPG); err != nil {
		return Result{}, err
	}
	if err := u.convert(ctx, "convert thumbnail", thumbnailPNG, thumbnailJPG); err != nil {
		return Result{}, err
	}

	log.Info("composing video")
	clips := compose.FromScenes(enriched)
	video, err := retry.Do(ctx, u.d.Retry, "compose video", func(ctx context.Context) (types.RenderedVideo, error) {
		return u.composer.Compose(ctx, clips, in.OutDir, name, previewJPG, thumbnailJPG)
	})
	if err != nil {
		return Result{}, err
	}

	outputs := types.Outputs{Video: video, Scenes: len(enriched)}
	if d, err := u.d.Media.ProbeDuration(ctx, video.VideoPath); err != nil {
		log.WithError(err).Warn("could not probe final video duration")
	} else {
		outputs.DurationSec = d.Seconds()
	}
	if err := writeJSON(filepath.Join(metaDir, "outputs.json"), outputs); err != nil {
		return Result{}, err
	}

	if in.Cleanup {
		u.cleanup(in.OutDir)
	}

	log.WithFields(logrus.Fields{
		"video":    video.VideoPath,
		"duration": outputs.DurationSec,
	}).Info("done")
	return Result{Topic: in.Topic, Scenes: enriched, Video: video, Outputs: outputs}, nil
}

func (u Usecase) image(ctx context.Context, label, prompt, size, out string) error {
	return retry.Run(ctx, u.d.Retry, label, func(ctx context.Context) error {
		return u.d.Images.GenerateImage(ctx, ports.ImageRequest{Prompt: prompt, Size: size, OutFile: out})
	})
}

func (u Usecase) convert(ctx context.Context, label, in, out string) error {
	return retry.Run(ctx, u.d.Retry, label, func(ctx context.Context) error {
		return u.d.Media.ConvertFrame(ctx, in, out)
	})
}

// cleanup removes intermediates. Failures are logged and ignored.
func (u Usecase) cleanup(outDir string) {
	for _, p := range []string{
		filepath.Join(outDir, "audio"),
		filepath.Join(outDir, "images"),
		filepath.Join(outDir, "clips"),
		filepath.Join(outDir, compose.ConcatListName),
	} {
		if err := os.RemoveAll(p); err != nil {
			u.log.WithError(err).WithField("path", p).Debug("cleanup failed")
		}
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, b, 0o644)
}
