package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/forPelevin/reelgen/internal/domain/script"
	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
)

const (
	Provider = "anthropic"

	DefaultModel       = "claude-3-5-sonnet-latest"
	DefaultTemperature = 0.7

	maxTokens      = 4096
	requestTimeout = 3 * time.Minute
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// AllowedHosts widens the hosts BaseURL may point at; empty means the public API only.
	AllowedHosts []string
	Temperature  float64
}

type Adapter struct {
	key         string
	model       string
	temperature float64
	client      sdk.Client
}

func New(cfg Config) (*Adapter, error) {
	return newAdapter(cfg)
}

func newAdapter(cfg Config, extra ...option.RequestOption) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, retry.Permanent(ports.Wrap(Provider, fmt.Errorf("ANTHROPIC_API_KEY is required: %w", ports.ErrMissingCredential)))
	}
	if err := ValidateBaseURL(cfg.BaseURL, cfg.AllowedHosts); err != nil {
		return nil, retry.Permanent(ports.Wrap(Provider, err))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(requestTimeout),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	opts = append(opts, extra...)

	return &Adapter{
		key:         cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      sdk.NewClient(opts...),
	}, nil
}

func (a *Adapter) WriteScript(ctx context.Context, req ports.ScriptRequest) ([]types.Scene, error) {
	input, err := a.callTool(ctx,
		script.ScriptSystemPrompt(),
		script.ScriptUserPrompt(req.Topic, req.ScenesCount, req.TotalSec),
		script.ScenesSchemaName,
		"Return the video script.",
		script.ScenesSchema(),
	)
	if err != nil {
		return nil, ports.Wrap(Provider, err)
	}
	scenes, err := script.ParseScenes(input)
	if err != nil {
		return nil, ports.Wrap(Provider, err)
	}
	return scenes, nil
}

func (a *Adapter) CoverPrompts(ctx context.Context, topic types.Topic) (types.CoverPrompts, error) {
	input, err := a.callTool(ctx,
		script.CoversSystemPrompt(),
		script.CoversUserPrompt(topic),
		script.CoversSchemaName,
		"Return the preview and thumbnail image prompts.",
		script.CoversSchema(),
	)
	if err != nil {
		return types.CoverPrompts{}, ports.Wrap(Provider, err)
	}
	c, err := script.ParseCovers(input)
	if err != nil {
		return types.CoverPrompts{}, ports.Wrap(Provider, err)
	}
	return c, nil
}

// callTool forces the model to answer through a single tool whose input schema
// is the expected reply shape, and returns the raw tool input.
func (a *Adapter) callTool(ctx context.Context, system, user, tool, description string, schema map[string]any) ([]byte, error) {
	msg, err := a.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   maxTokens,
		Temperature: sdk.Float(a.temperature),
		System:      []sdk.TextBlockParam{{Text: system}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(user)),
		},
		Tools: []sdk.ToolUnionParam{{
			OfTool: &sdk.ToolParam{
				Name:        tool,
				Description: sdk.String(description),
				InputSchema: inputSchema(schema),
			},
		}},
		ToolChoice: sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: tool},
		},
	})
	if err != nil {
		return nil, a.describe(err)
	}
	for _, b := range msg.Content {
		if b.Type == "tool_use" && b.Name == tool && len(b.Input) > 0 {
			return b.Input, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s tool call in response (stop_reason=%s)", script.ErrShape, tool, msg.StopReason)
}

// inputSchema moves everything but the object properties into ExtraFields so
// required and additionalProperties reach the API unchanged.
func inputSchema(schema map[string]any) sdk.ToolInputSchemaParam {
	extra := make(map[string]any, len(schema))
	for k, v := range schema {
		if k != "type" && k != "properties" {
			extra[k] = v
		}
	}
	return sdk.ToolInputSchemaParam{Properties: schema["properties"], ExtraFields: extra}
}

// describe keeps the status code and body of API errors. Vendors sometimes
// echo the key back, so it is masked.
func (a *Adapter) describe(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	body := strings.ReplaceAll(apiErr.RawJSON(), a.key, "[REDACTED]")
	return fmt.Errorf("status %d: %s", apiErr.StatusCode, truncate(body, 400))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
