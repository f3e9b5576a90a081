package types

import "fmt"

type Topic struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type Scene struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Visual   string `json:"visual"`
	Duration int    `json:"duration"`
}

type EnrichedScene struct {
	Scene
	AudioPath string `json:"audioPath"`
	ImagePath string `json:"imagePath"`
}

type CoverPrompts struct {
	PreviewPrompt   string `json:"previewPrompt" validate:"required"`
	ThumbnailPrompt string `json:"thumbnailPrompt" validate:"required"`
}

type RenderedVideo struct {
	VideoPath     string `json:"videoPath"`
	PreviewPath   string `json:"previewPath"`
	ThumbnailPath string `json:"thumbnailPath"`
}

// Outputs is the record persisted as meta/outputs.json.
type Outputs struct {
	Video       RenderedVideo `json:"video"`
	DurationSec float64       `json:"durationSec,omitempty"`
	Scenes      int           `json:"scenes"`
}

type ChatProvider string

const (
	ChatOpenAI    ChatProvider = "openai"
	ChatAnthropic ChatProvider = "anthropic"
)

func (p ChatProvider) Valid() bool {
	switch p {
	case ChatOpenAI, ChatAnthropic:
		return true
	}
	return false
}

type ImageProvider string

const (
	ImageOpenAI       ImageProvider = "openai"
	ImagePollinations ImageProvider = "pollinations"
	ImageMock         ImageProvider = "mock"
)

func (p ImageProvider) Valid() bool {
	switch p {
	case ImageOpenAI, ImagePollinations, ImageMock:
		return true
	}
	return false
}

type SpeechProvider string

const (
	SpeechElevenLabs SpeechProvider = "elevenlabs"
	SpeechOpenAI     SpeechProvider = "openai"
	SpeechScript     SpeechProvider = "script"
	SpeechMock       SpeechProvider = "mock"
)

func (p SpeechProvider) Valid() bool {
	switch p {
	case SpeechElevenLabs, SpeechOpenAI, SpeechScript, SpeechMock:
		return true
	}
	return false
}

// ParseChatProvider and friends turn raw config strings into enum values.
func ParseChatProvider(s string) (ChatProvider, error) {
	p := ChatProvider(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown chat provider %q (want openai or anthropic)", s)
	}
	return p, nil
}

func ParseImageProvider(s string) (ImageProvider, error) {
	p := ImageProvider(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown image provider %q (want openai, pollinations or mock)", s)
	}
	return p, nil
}

func ParseSpeechProvider(s string) (SpeechProvider, error) {
	p := SpeechProvider(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown speech provider %q (want elevenlabs, openai, script or mock)", s)
	}
	return p, nil
}
