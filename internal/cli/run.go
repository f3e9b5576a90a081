package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelgen/internal/logging"
	"github.com/forPelevin/reelgen/internal/pipeline"
	"github.com/forPelevin/reelgen/internal/ports/adapters/anthropic"
	"github.com/forPelevin/reelgen/internal/ports/adapters/elevenlabs"
	"github.com/forPelevin/reelgen/internal/ports/adapters/openai"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
)

const (
	defaultOutDir     = "./out"
	defaultScenes     = 6
	defaultTotalSec   = 60
	defaultTopicsFile = "topics.json"
	runTimeout        = 3 * time.Hour
)

func run(cmd *cobra.Command) error {
	log, err := logging.New(cmd.ErrOrStderr(), stringSetting(cmd, "log-level", "LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	scenesCount, err := intSetting(cmd, "scenes", "SCENES_COUNT")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	totalSec, err := intSetting(cmd, "duration", "TOTAL_DURATION_SEC")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cleanup, err := boolSetting(cmd, "cleanup", "CLEANUP")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	scriptProvider, err := types.ParseChatProvider(getenvDefault("SCRIPT_PROVIDER", string(types.ChatOpenAI)))
	if err != nil {
		return fmt.Errorf("config: SCRIPT_PROVIDER: %w", err)
	}
	coverProvider, err := types.ParseChatProvider(getenvDefault("COVER_PROVIDER", string(types.ChatAnthropic)))
	if err != nil {
		return fmt.Errorf("config: COVER_PROVIDER: %w", err)
	}
	imageProvider, err := types.ParseImageProvider(getenvDefault("IMAGE_PROVIDER", string(types.ImageOpenAI)))
	if err != nil {
		return fmt.Errorf("config: IMAGE_PROVIDER: %w", err)
	}
	speechProvider, err := types.ParseSpeechProvider(getenvDefault("TTS_PROVIDER", string(types.SpeechElevenLabs)))
	if err != nil {
		return fmt.Errorf("config: TTS_PROVIDER: %w", err)
	}

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")

	cfg := pipeline.Config{
		OutDir:      stringSetting(cmd, "out", "OUTPUT_DIR"),
		ScenesCount: scenesCount,
		TotalSec:    totalSec,
		Cleanup:     cleanup,

		TopicID:     stringSetting(cmd, "topic-id", "TOPIC_ID"),
		TopicsFile:  stringSetting(cmd, "topics", "TOPICS_FILE"),
		Title:       title,
		Description: description,

		ScriptProvider: scriptProvider,
		CoverProvider:  coverProvider,
		ImageProvider:  imageProvider,
		SpeechProvider: speechProvider,

		FFmpegPath:  getenvDefault("FFMPEG_BIN", "ffmpeg"),
		FFprobePath: getenvDefault("FFPROBE_BIN", "ffprobe"),

		OpenAI: openai.Config{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			ChatModel:   getenvDefault("OPENAI_CHAT_MODEL", openai.DefaultChatModel),
			ImageModel:  getenvDefault("OPENAI_IMAGE_MODEL", openai.DefaultImageModel),
			ImageSize:   getenvDefault("OPENAI_IMAGE_SIZE", openai.DefaultImageSize),
			SpeechModel: getenvDefault("OPENAI_TTS_MODEL", openai.DefaultSpeechModel),
			Voice:       getenvDefault("OPENAI_TTS_VOICE", openai.DefaultVoice),
		},
		Anthropic: anthropic.Config{
			APIKey:       os.Getenv("ANTHROPIC_API_KEY"),
			Model:        getenvDefault("ANTHROPIC_MODEL", anthropic.DefaultModel),
			BaseURL:      os.Getenv("ANTHROPIC_BASE_URL"),
			AllowedHosts: anthropic.ParseAllowedHosts(os.Getenv("ANTHROPIC_ALLOWED_HOSTS")),
		},
		ElevenLabs: elevenlabs.Config{
			APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
			VoiceID: getenvDefault("ELEVENLABS_VOICE_ID", elevenlabs.DefaultVoiceID),
		},
		TTSCommand: os.Getenv("TTS_COMMAND"),
		TTSPython:  os.Getenv("TTS_PYTHON"),

		Retry: retry.Policy{MaxAttempts: retry.DefaultMaxAttempts, BaseDelay: retry.DefaultBaseDelay},
		Log:   log,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Done:")
	fmt.Fprintf(out, "- Topic: %s\n", res.Topic.Title)
	fmt.Fprintf(out, "- Video: %s\n", res.Video.VideoPath)
	fmt.Fprintf(out, "- Preview: %s\n", res.Video.PreviewPath)
	fmt.Fprintf(out, "- Thumbnail: %s\n", res.Video.ThumbnailPath)
	return nil
}

// stringSetting returns the flag value when it was set on the command line,
// otherwise the environment variable, otherwise the flag default.
func stringSetting(cmd *cobra.Command, flag, env string) string {
	v, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return v
	}
	return getenvDefault(env, v)
}

func intSetting(cmd *cobra.Command, flag, env string) (int, error) {
	v, _ := cmd.Flags().GetInt(flag)
	if cmd.Flags().Changed(flag) {
		return v, nil
	}
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return v, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", env, raw)
	}
	return n, nil
}

func boolSetting(cmd *cobra.Command, flag, env string) (bool, error) {
	v, _ := cmd.Flags().GetBool(flag)
	if cmd.Flags().Changed(flag) {
		return v, nil
	}
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return v, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", env, raw)
	}
	return b, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
