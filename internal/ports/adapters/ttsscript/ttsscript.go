package ttsscript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/reelgen/internal/ports"
)

const Provider = "script"

// Adapter narrates through a local TTS program that takes
// `--text <text> --output <file.wav>`, then transcodes the wav to the
// requested mp3.
type Adapter struct {
	python string
	script string
	media  ports.MediaTool
}

// New returns an adapter running `python script ...`, or `script ...` when
// python is empty.
func New(python, script string, media ports.MediaTool) (*Adapter, error) {
	if strings.TrimSpace(script) == "" {
		return nil, errors.New("TTS_COMMAND is required for the script speech provider")
	}
	return &Adapter{python: python, script: script, media: media}, nil
}

func (a *Adapter) Synthesize(ctx context.Context, req ports.SpeechRequest) error {
	return ports.Wrap(Provider, a.synthesize(ctx, req))
}

func (a *Adapter) synthesize(ctx context.Context, req ports.SpeechRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("empty narration text")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutFile), 0o755); err != nil {
		return err
	}
	wav := strings.TrimSuffix(req.OutFile, filepath.Ext(req.OutFile)) + ".tts.wav"
	defer os.Remove(wav)

	bin, args := a.command(req.Text, wav)
	cmd := exec.CommandContext(ctx, bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("tts script failed: %w\n%s", err, string(b))
	}
	if st, err := os.Stat(wav); err != nil || st.Size() == 0 {
		return fmt.Errorf("tts script did not produce %s", wav)
	}
	return a.media.TranscodeAudio(ctx, wav, req.OutFile)
}

func (a *Adapter) command(text, out string) (string, []string) {
	args := []string{"--text", text, "--output", out}
	if strings.TrimSpace(a.python) == "" {
		return a.script, args
	}
	return a.python, append([]string{a.script}, args...)
}
