package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/forPelevin/reelgen/internal/domain/script"
	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
)

const (
	Provider = "openai"

	DefaultChatModel   = "gpt-4o-mini"
	DefaultImageModel  = "gpt-image-1"
	DefaultImageSize   = "1024x1024"
	DefaultSpeechModel = "gpt-4o-mini-tts"
	DefaultVoice       = "alloy"
	DefaultTemperature = 0.7

	requestTimeout = 3 * time.Minute
)

type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	ImageModel  string
	ImageSize   string
	SpeechModel string
	Voice       string
	Temperature float64
}

type Adapter struct {
	cfg    Config
	client oai.Client
}

func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, retry.Permanent(ports.Wrap(Provider, fmt.Errorf("OPENAI_API_KEY is required: %w", ports.ErrMissingCredential)))
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.ImageSize == "" {
		cfg.ImageSize = DefaultImageSize
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(requestTimeout),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Adapter{cfg: cfg, client: oai.NewClient(opts...)}, nil
}

func (a *Adapter) WriteScript(ctx context.Context, req ports.ScriptRequest) ([]types.Scene, error) {
	content, err := a.structured(ctx,
		script.ScriptSystemPrompt(),
		script.ScriptUserPrompt(req.Topic, req.ScenesCount, req.TotalSec),
		script.ScenesSchemaName,
		script.ScenesSchema(),
	)
	if err != nil {
		return nil, ports.Wrap(Provider, err)
	}
	scenes, err := script.ParseScenes([]byte(content))
	if err != nil {
		return nil, ports.Wrap(Provider, err)
	}
	return scenes, nil
}

func (a *Adapter) CoverPrompts(ctx context.Context, topic types.Topic) (types.CoverPrompts, error) {
	content, err := a.structured(ctx,
		script.CoversSystemPrompt(),
		script.CoversUserPrompt(topic),
		script.CoversSchemaName,
		script.CoversSchema(),
	)
	if err != nil {
		return types.CoverPrompts{}, ports.Wrap(Provider, err)
	}
	c, err := script.ParseCovers([]byte(content))
	if err != nil {
		return types.CoverPrompts{}, ports.Wrap(Provider, err)
	}
	return c, nil
}

func (a *Adapter) structured(ctx context.Context, system, user, name string, schema map[string]any) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: a.cfg.ChatModel,
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(user),
		},
		Temperature: oai.Float(a.cfg.Temperature),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: schema,
					Strict: oai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", describe(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", script.ErrShape)
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", msg.Refusal)
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", script.ErrShape)
	}
	return content, nil
}

func (a *Adapter) GenerateImage(ctx context.Context, req ports.ImageRequest) error {
	size := req.Size
	if size == "" {
		size = a.cfg.ImageSize
	}
	params := oai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  oai.ImageModel(a.cfg.ImageModel),
		N:      oai.Int(1),
		Size:   oai.ImageGenerateParamsSize(size),
	}
	// gpt-image models always return base64 and reject response_format.
	if !strings.HasPrefix(a.cfg.ImageModel, "gpt-image") {
		params.ResponseFormat = oai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := a.client.Images.Generate(ctx, params)
	if err != nil {
		return ports.Wrap(Provider, describe(err))
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return ports.Wrap(Provider, fmt.Errorf("%w: images response has no b64_json", script.ErrShape))
	}
	b, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return ports.Wrap(Provider, fmt.Errorf("%w: decode b64_json: %v", script.ErrShape, err))
	}
	return ports.Wrap(Provider, writeFile(req.OutFile, b))
}

func (a *Adapter) Synthesize(ctx context.Context, req ports.SpeechRequest) error {
	res, err := a.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          oai.SpeechModel(a.cfg.SpeechModel),
		Voice:          oai.AudioSpeechNewParamsVoice(a.cfg.Voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return ports.Wrap(Provider, describe(err))
	}
	defer res.Body.Close()

	if err := os.MkdirAll(filepath.Dir(req.OutFile), 0o755); err != nil {
		return ports.Wrap(Provider, err)
	}
	f, err := os.Create(req.OutFile)
	if err != nil {
		return ports.Wrap(Provider, err)
	}
	n, err := io.Copy(f, res.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ports.Wrap(Provider, fmt.Errorf("write speech: %w", err))
	}
	if n == 0 {
		return ports.Wrap(Provider, fmt.Errorf("%w: empty audio stream", script.ErrShape))
	}
	return nil
}

// describe keeps the status code of API errors and drops the request dump the
// SDK puts into Error().
func describe(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = truncate(apiErr.RawJSON(), 400)
		}
		return fmt.Errorf("status %d: %s", apiErr.StatusCode, msg)
	}
	return err
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
