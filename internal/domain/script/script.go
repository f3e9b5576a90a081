package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/forPelevin/reelgen/internal/types"
)

const (
	ScenesSchemaName = "video_script"
	CoversSchemaName = "cover_prompts"
)

// ErrShape is returned when a model reply does not match the expected schema.
var ErrShape = errors.New("response does not match schema")

var validate = validator.New(validator.WithRequiredStructEnabled())

type rawScene struct {
	Title    string  `json:"title" validate:"required"`
	Text     string  `json:"text" validate:"required"`
	Visual   string  `json:"visual" validate:"required"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

type rawScript struct {
	Scenes []rawScene `json:"scenes" validate:"required,min=1,dive"`
}

// ScenesSchema is the JSON schema of a script reply. It follows the strict
// structured-output rules: every property required, no extra properties.
func ScenesSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"scenes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"title":    map[string]any{"type": "string", "description": "Short on-screen scene title"},
						"text":     map[string]any{"type": "string", "description": "Narration, one to three sentences"},
						"visual":   map[string]any{"type": "string", "description": "Detailed prompt for a still image"},
						"duration": map[string]any{"type": "number", "description": "Scene length in seconds"},
					},
					"required": []string{"title", "text", "visual", "duration"},
				},
			},
		},
		"required": []string{"scenes"},
	}
}

func CoversSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"previewPrompt":   map[string]any{"type": "string"},
			"thumbnailPrompt": map[string]any{"type": "string"},
		},
		"required": []string{"previewPrompt", "thumbnailPrompt"},
	}
}

func ScriptSystemPrompt() string {
	return "You are a professional screenwriter for short narrated videos. " +
		"Write a coherent narrative with logical transitions between scenes and a brisk pace. " +
		"Each scene has: title (short on-screen title), text (narration, up to three sentences), " +
		"visual (a detailed, descriptive prompt for generating a single still image of the scene, no text in the image), " +
		"duration (seconds)."
}

func ScriptUserPrompt(topic types.Topic, scenes, totalSec int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topic.Title)
	fmt.Fprintf(&b, "Description: %s\n\n", topic.Description)
	fmt.Fprintf(&b, "Write a script of %d scenes with a total duration of about %d seconds. ", scenes, totalSec)
	b.WriteString("Return a JSON object with a \"scenes\" array; each scene has only title, text, visual and duration.")
	return b.String()
}

func CoversSystemPrompt() string {
	return "You are an art director and prompt engineer. Write two prompts for generating images for a video. " +
		"Avoid any text in the image. Use high contrast, a clean composition and a 16:9 frame."
}

func CoversUserPrompt(topic types.Topic) string {
	return fmt.Sprintf(
		"Video topic: %s\nDescription: %s\n\n"+
			"Produce previewPrompt (a neutral preview frame) and thumbnailPrompt (a more clickable thumbnail).",
		topic.Title, topic.Description,
	)
}

// ParseScenes decodes and validates a script reply and assigns every scene a
// fresh id. Durations are rounded but not normalized.
func ParseScenes(raw []byte) ([]types.Scene, error) {
	var s rawScript
	if err := decodeStrict(raw, &s); err != nil {
		return nil, err
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShape, err)
	}
	out := make([]types.Scene, 0, len(s.Scenes))
	for _, rs := range s.Scenes {
		out = append(out, types.Scene{
			ID:       uuid.NewString(),
			Title:    strings.TrimSpace(rs.Title),
			Text:     strings.TrimSpace(rs.Text),
			Visual:   strings.TrimSpace(rs.Visual),
			Duration: int(math.Round(rs.Duration)),
		})
	}
	return out, nil
}

func ParseCovers(raw []byte) (types.CoverPrompts, error) {
	var c types.CoverPrompts
	if err := decodeStrict(raw, &c); err != nil {
		return types.CoverPrompts{}, err
	}
	c.PreviewPrompt = strings.TrimSpace(c.PreviewPrompt)
	c.ThumbnailPrompt = strings.TrimSpace(c.ThumbnailPrompt)
	if err := validate.Struct(c); err != nil {
		return types.CoverPrompts{}, fmt.Errorf("%w: %v", ErrShape, err)
	}
	return c, nil
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	return nil
}
