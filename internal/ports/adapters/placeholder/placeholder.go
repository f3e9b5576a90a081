package placeholder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/ports/adapters/ffmpeg"
)

const (
	Provider   = "mock"
	FrameColor = "0x111111"
)

// Images renders a solid frame instead of calling an image service.
type Images struct {
	media ports.MediaTool
}

func NewImages(media ports.MediaTool) *Images {
	return &Images{media: media}
}

func (a *Images) GenerateImage(ctx context.Context, req ports.ImageRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.OutFile), 0o755); err != nil {
		return ports.Wrap(Provider, err)
	}
	err := a.media.SolidFrame(ctx, FrameColor, ffmpeg.FrameWidth, ffmpeg.FrameHeight, req.OutFile)
	return ports.Wrap(Provider, err)
}

// Speech renders silence of the requested length instead of narration.
type Speech struct {
	media ports.MediaTool
}

func NewSpeech(media ports.MediaTool) *Speech {
	return &Speech{media: media}
}

func (a *Speech) Synthesize(ctx context.Context, req ports.SpeechRequest) error {
	if req.DurationSec <= 0 {
		return ports.Wrap(Provider, fmt.Errorf("duration must be > 0, got %d", req.DurationSec))
	}
	if err := os.MkdirAll(filepath.Dir(req.OutFile), 0o755); err != nil {
		return ports.Wrap(Provider, err)
	}
	err := a.media.SilentAudio(ctx, time.Duration(req.DurationSec)*time.Second, req.OutFile)
	return ports.Wrap(Provider, err)
}
