package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/reelgen/internal/domain/scenes"
	"github.com/forPelevin/reelgen/internal/domain/topics"
	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/ports/adapters/anthropic"
	"github.com/forPelevin/reelgen/internal/ports/adapters/elevenlabs"
	"github.com/forPelevin/reelgen/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelgen/internal/ports/adapters/openai"
	"github.com/forPelevin/reelgen/internal/ports/adapters/placeholder"
	"github.com/forPelevin/reelgen/internal/ports/adapters/pollinations"
	"github.com/forPelevin/reelgen/internal/ports/adapters/ttsscript"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
	"github.com/forPelevin/reelgen/internal/usecase"
)

type Config struct {
	OutDir      string `validate:"required"`
	ScenesCount int    `validate:"gte=1,lte=50"`
	TotalSec    int    `validate:"gte=3,lte=3600"`
	Cleanup     bool

	// TopicID picks a topic from TopicsFile; empty or unknown means random.
	TopicID    string
	TopicsFile string
	// Title, when set, bypasses the topic list.
	Title       string
	Description string

	ScriptProvider types.ChatProvider   `validate:"enum"`
	CoverProvider  types.ChatProvider   `validate:"enum"`
	ImageProvider  types.ImageProvider  `validate:"enum"`
	SpeechProvider types.SpeechProvider `validate:"enum"`

	FFmpegPath  string
	FFprobePath string

	OpenAI       openai.Config
	Anthropic    anthropic.Config
	ElevenLabs   elevenlabs.Config
	Pollinations pollinations.Config
	TTSCommand   string
	TTSPython    string

	Retry retry.Policy
	Log   logrus.FieldLogger
	// Rand drives the random topic pick; nil seeds from the clock.
	Rand *rand.Rand
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		e, ok := fl.Field().Interface().(interface{ Valid() bool })
		return ok && e.Valid()
	})
	return v
}

var fieldNames = map[string]string{
	"OutDir":         "output dir",
	"ScenesCount":    "scenes",
	"TotalSec":       "duration",
	"ScriptProvider": "SCRIPT_PROVIDER",
	"CoverProvider":  "COVER_PROVIDER",
	"ImageProvider":  "IMAGE_PROVIDER",
	"SpeechProvider": "TTS_PROVIDER",
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	if err := scenes.Validate(c.ScenesCount, c.TotalSec); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if c.usesChat(types.ChatAnthropic) {
		return anthropic.ValidateBaseURL(c.Anthropic.BaseURL, c.Anthropic.AllowedHosts)
	}
	return nil
}

func (c Config) validateCredentials() error {
	missing := func(env string) error {
		return fmt.Errorf("%s is required: %w", env, ports.ErrMissingCredential)
	}
	if c.usesOpenAI() && strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return missing("OPENAI_API_KEY")
	}
	if c.usesChat(types.ChatAnthropic) && strings.TrimSpace(c.Anthropic.APIKey) == "" {
		return missing("ANTHROPIC_API_KEY")
	}
	if c.SpeechProvider == types.SpeechElevenLabs && strings.TrimSpace(c.ElevenLabs.APIKey) == "" {
		return missing("ELEVENLABS_API_KEY")
	}
	if c.SpeechProvider == types.SpeechScript && strings.TrimSpace(c.TTSCommand) == "" {
		return errors.New("TTS_COMMAND is required for TTS_PROVIDER=script")
	}
	return nil
}

func (c Config) usesChat(p types.ChatProvider) bool {
	return c.ScriptProvider == p || c.CoverProvider == p
}

func (c Config) usesOpenAI() bool {
	return c.usesChat(types.ChatOpenAI) ||
		c.ImageProvider == types.ImageOpenAI ||
		c.SpeechProvider == types.SpeechOpenAI
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be >= %s", name, fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be <= %s", name, fe.Param()))
		case "enum":
			msgs = append(msgs, fmt.Sprintf("unknown %s %q", name, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' tag", name, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Run picks the topic, wires adapters for the selected providers and produces
// the video under cfg.OutDir.
func Run(ctx context.Context, cfg Config) (usecase.Result, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	topic, err := selectTopic(cfg, log)
	if err != nil {
		return usecase.Result{}, err
	}
	log.WithFields(logrus.Fields{"id": topic.ID, "title": topic.Title}).Info("topic selected")

	// adapters
	media := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, log)
	a := adapters{cfg: cfg, media: media}
	script, err := a.chat(cfg.ScriptProvider)
	if err != nil {
		return usecase.Result{}, err
	}
	covers, err := a.chat(cfg.CoverProvider)
	if err != nil {
		return usecase.Result{}, err
	}
	images, err := a.images()
	if err != nil {
		return usecase.Result{}, err
	}
	speech, err := a.speech()
	if err != nil {
		return usecase.Result{}, err
	}

	policy := cfg.Retry
	policy.Logger = log
	uc := usecase.New(usecase.Deps{
		Script: script,
		Covers: covers,
		Images: images,
		Speech: speech,
		Media:  media,
		Retry:  policy,
		Log:    log,
	})

	log.WithField("dir", cfg.OutDir).Info("preparing workspace")
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return usecase.Result{}, err
	}

	imageSize := ""
	if cfg.ImageProvider == types.ImageOpenAI {
		imageSize = cfg.OpenAI.ImageSize
	}
	return uc.Run(ctx, usecase.Input{
		Topic:       topic,
		ScenesCount: cfg.ScenesCount,
		TotalSec:    cfg.TotalSec,
		OutDir:      cfg.OutDir,
		ImageSize:   imageSize,
		Cleanup:     cfg.Cleanup,
	})
}

func selectTopic(cfg Config, log logrus.FieldLogger) (types.Topic, error) {
	if title := strings.TrimSpace(cfg.Title); title != "" {
		id := topics.Slug(title)
		if id == "" {
			id = "custom"
		}
		return types.Topic{ID: id, Title: title, Description: strings.TrimSpace(cfg.Description)}, nil
	}

	list, err := topics.Load(cfg.TopicsFile)
	if err != nil {
		log.WithError(err).Warn("using fallback topics")
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	t := topics.Pick(list, cfg.TopicID, rnd)
	if t.ID == "" {
		return types.Topic{}, errors.New("no topics available")
	}
	if cfg.TopicID != "" && t.ID != cfg.TopicID {
		log.WithField("topic_id", cfg.TopicID).Warn("requested topic not found, picked a random one")
	}
	return t, nil
}

type chatModel interface {
	ports.ScriptWriter
	ports.CoverPrompter
}

// adapters builds each provider client at most once per run.
type adapters struct {
	cfg    Config
	media  ports.MediaTool
	openai *openai.Adapter
	claude *anthropic.Adapter
}

func (a *adapters) openAI() (*openai.Adapter, error) {
	if a.openai == nil {
		c, err := openai.New(a.cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		a.openai = c
	}
	return a.openai, nil
}

func (a *adapters) chat(p types.ChatProvider) (chatModel, error) {
	switch p {
	case types.ChatOpenAI:
		return a.openAI()
	case types.ChatAnthropic:
		if a.claude == nil {
			c, err := anthropic.New(a.cfg.Anthropic)
			if err != nil {
				return nil, err
			}
			a.claude = c
		}
		return a.claude, nil
	}
	return nil, fmt.Errorf("unknown chat provider %q", p)
}

func (a *adapters) images() (ports.ImageGenerator, error) {
	switch a.cfg.ImageProvider {
	case types.ImageOpenAI:
		return a.openAI()
	case types.ImagePollinations:
		return pollinations.New(a.cfg.Pollinations), nil
	case types.ImageMock:
		return placeholder.NewImages(a.media), nil
	}
	return nil, fmt.Errorf("unknown image provider %q", a.cfg.ImageProvider)
}

func (a *adapters) speech() (ports.SpeechSynthesizer, error) {
	switch a.cfg.SpeechProvider {
	case types.SpeechElevenLabs:
		return elevenlabs.New(a.cfg.ElevenLabs)
	case types.SpeechOpenAI:
		return a.openAI()
	case types.SpeechScript:
		return ttsscript.New(a.cfg.TTSPython, a.cfg.TTSCommand, a.media)
	case types.SpeechMock:
		return placeholder.NewSpeech(a.media), nil
	}
	return nil, fmt.Errorf("unknown speech provider %q", a.cfg.SpeechProvider)
}

// ensure adapters implement ports
var (
	_ ports.MediaTool         = (*ffmpeg.Adapter)(nil)
	_ chatModel               = (*openai.Adapter)(nil)
	_ chatModel               = (*anthropic.Adapter)(nil)
	_ ports.ImageGenerator    = (*openai.Adapter)(nil)
	_ ports.ImageGenerator    = (*pollinations.Adapter)(nil)
	_ ports.ImageGenerator    = (*placeholder.Images)(nil)
	_ ports.SpeechSynthesizer = (*openai.Adapter)(nil)
	_ ports.SpeechSynthesizer = (*elevenlabs.Adapter)(nil)
	_ ports.SpeechSynthesizer = (*ttsscript.Adapter)(nil)
	_ ports.SpeechSynthesizer = (*placeholder.Speech)(nil)
)
