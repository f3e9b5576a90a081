package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forPelevin/reelgen/internal/types"
)

type ScriptRequest struct {
	Topic       types.Topic
	ScenesCount int
	TotalSec    int
}

type ImageRequest struct {
	Prompt  string
	Size    string
	OutFile string
}

type SpeechRequest struct {
	Text        string
	DurationSec int
	OutFile     string
}

type ScriptWriter interface {
	WriteScript(ctx context.Context, req ScriptRequest) ([]types.Scene, error)
}

type CoverPrompter interface {
	CoverPrompts(ctx context.Context, topic types.Topic) (types.CoverPrompts, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) error
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) error
}

type MediaTool interface {
	SolidFrame(ctx context.Context, color string, width, height int, outFile string) error
	SilentAudio(ctx context.Context, d time.Duration, outFile string) error
	TranscodeAudio(ctx context.Context, inFile, outFile string) error
	StillClip(ctx context.Context, imageFile, audioFile string, d time.Duration, outFile string) error
	Concat(ctx context.Context, listFile, outFile string) error
	ConvertFrame(ctx context.Context, inFile, outFile string) error
	ProbeDuration(ctx context.Context, inFile string) (time.Duration, error)
}

// ErrMissingCredential means the selected provider has no API key configured.
var ErrMissingCredential = errors.New("missing credential")

// ProviderError tags a failure with the provider that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Wrap returns err tagged with provider, or nil.
func Wrap(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
