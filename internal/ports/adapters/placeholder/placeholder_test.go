package placeholder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/reelgen/internal/ports"
)

type fakeMedia struct {
	ports.MediaTool

	frames  []string
	silence []time.Duration
	err     error
}

func (f *fakeMedia) SolidFrame(_ context.Context, color string, w, h int, out string) error {
	f.frames = append(f.frames, color+"@"+out)
	if w != 1280 || h != 720 {
		return errors.New("unexpected frame size")
	}
	return f.err
}

func (f *fakeMedia) SilentAudio(_ context.Context, d time.Duration, _ string) error {
	f.silence = append(f.silence, d)
	return f.err
}

func TestImages_SolidFrame(t *testing.T) {
	media := &fakeMedia{}
	out := filepath.Join(t.TempDir(), "images", "a.png")
	if err := NewImages(media).GenerateImage(context.Background(), ports.ImageRequest{Prompt: "p", OutFile: out}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(media.frames) != 1 || media.frames[0] != FrameColor+"@"+out {
		t.Fatalf("unexpected frames: %v", media.frames)
	}
}

func TestSpeech_SilenceOfSceneDuration(t *testing.T) {
	media := &fakeMedia{}
	out := filepath.Join(t.TempDir(), "audio", "a.mp3")
	if err := NewSpeech(media).Synthesize(context.Background(), ports.SpeechRequest{Text: "x", DurationSec: 5, OutFile: out}); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if len(media.silence) != 1 || media.silence[0] != 5*time.Second {
		t.Fatalf("unexpected silence calls: %v", media.silence)
	}
}

func TestSpeech_ErrorsAreTagged(t *testing.T) {
	media := &fakeMedia{err: errors.New("ffmpeg silent audio: exit status 1")}
	err := NewSpeech(media).Synthesize(context.Background(), ports.SpeechRequest{DurationSec: 3, OutFile: filepath.Join(t.TempDir(), "a.mp3")})
	var pe *ports.ProviderError
	if !errors.As(err, &pe) || pe.Provider != Provider {
		t.Fatalf("expected provider error tagged %q, got %v", Provider, err)
	}

	if err := NewSpeech(&fakeMedia{}).Synthesize(context.Background(), ports.SpeechRequest{OutFile: "x.mp3"}); err == nil {
		t.Fatalf("expected error for zero duration")
	}
}
