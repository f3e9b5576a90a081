package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	el "github.com/haguro/elevenlabs-go"

	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/retry"
)

const (
	Provider = "elevenlabs"

	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModel   = "eleven_multilingual_v2"

	stability       = 0.4
	similarityBoost = 0.8
	requestTimeout  = 2 * time.Minute
)

type Config struct {
	APIKey  string
	VoiceID string
	Model   string
}

// streamFunc writes the synthesized audio for req to w.
type streamFunc func(ctx context.Context, w io.Writer, voiceID string, req el.TextToSpeechRequest) error

type Adapter struct {
	key     string
	voiceID string
	model   string
	stream  streamFunc
}

func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, retry.Permanent(ports.Wrap(Provider, fmt.Errorf("ELEVENLABS_API_KEY is required: %w", ports.ErrMissingCredential)))
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = DefaultVoiceID
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	a := &Adapter{key: cfg.APIKey, voiceID: cfg.VoiceID, model: cfg.Model}
	a.stream = a.clientStream
	return a, nil
}

// clientStream builds a client per request: the client keeps the context it
// was created with, and each attempt of the retry wrapper carries its own.
func (a *Adapter) clientStream(ctx context.Context, w io.Writer, voiceID string, req el.TextToSpeechRequest) error {
	return el.NewClient(ctx, a.key, requestTimeout).TextToSpeechStream(w, voiceID, req)
}

// Synthesize writes the mp3 returned by the text-to-speech endpoint as-is.
// DurationSec is ignored; the narration decides its own length.
func (a *Adapter) Synthesize(ctx context.Context, req ports.SpeechRequest) error {
	return ports.Wrap(Provider, a.synthesize(ctx, req))
}

func (a *Adapter) synthesize(ctx context.Context, req ports.SpeechRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.OutFile), 0o755); err != nil {
		return err
	}
	f, err := os.Create(req.OutFile)
	if err != nil {
		return err
	}
	cw := &countingWriter{w: f}
	err = a.stream(ctx, cw, a.voiceID, el.TextToSpeechRequest{
		Text:    req.Text,
		ModelID: a.model,
		VoiceSettings: &el.VoiceSettings{
			Stability:       stability,
			SimilarityBoost: similarityBoost,
		},
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		_ = os.Remove(req.OutFile)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timeout (voice=%s): %w", a.voiceID, ctx.Err())
		}
		msg := strings.ReplaceAll(err.Error(), a.key, "[REDACTED]")
		return fmt.Errorf("text to speech (voice=%s): %s", a.voiceID, truncate(msg, 400))
	case cw.n == 0:
		_ = os.Remove(req.OutFile)
		return errors.New("empty audio response")
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
