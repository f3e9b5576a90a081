package compose

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelgen/internal/types"
)

const ConcatListName = "concat.txt"

// ClipInput is one still image narrated for Duration.
type ClipInput struct {
	ID        string
	ImagePath string
	AudioPath string
	Duration  time.Duration
}

// FromScenes maps enriched scenes to clip inputs, keeping their order.
func FromScenes(scenes []types.EnrichedScene) []ClipInput {
	out := make([]ClipInput, 0, len(scenes))
	for _, s := range scenes {
		out = append(out, ClipInput{
			ID:        s.ID,
			ImagePath: s.ImagePath,
			AudioPath: s.AudioPath,
			Duration:  time.Duration(s.Duration) * time.Second,
		})
	}
	return out
}

type Composer struct {
	media ports.MediaTool
	log   logrus.FieldLogger
}

func New(media ports.MediaTool, log logrus.FieldLogger) *Composer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Composer{media: media, log: log.WithField("component", "compose")}
}

// Compose renders one clip per scene into outDir/clips and joins them into
// outDir/<name>.mp4. Empty preview and thumbnail paths default to
// <name>-preview.jpg and <name>-thumbnail.jpg in outDir.
func (c *Composer) Compose(
	ctx context.Context,
	scenes []ClipInput,
	outDir, name string,
	previewPath, thumbnailPath string,
) (types.RenderedVideo, error) {
	if len(scenes) == 0 {
		return types.RenderedVideo{}, errors.New("compose: no scenes")
	}
	if name == "" {
		name = "video"
	}
	clipsDir := filepath.Join(outDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return types.RenderedVideo{}, err
	}

	clips := make([]string, 0, len(scenes))
	for i, s := range scenes {
		if s.Duration <= 0 {
			return types.RenderedVideo{}, fmt.Errorf("compose: scene %s has no duration", s.ID)
		}
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("%03d", i+1)
		}
		clip := filepath.Join(clipsDir, id+".mp4")
		c.log.WithFields(logrus.Fields{"scene": id, "duration": s.Duration.String()}).Debug("rendering clip")
		if err := c.media.StillClip(ctx, s.ImagePath, s.AudioPath, s.Duration, clip); err != nil {
			return types.RenderedVideo{}, err
		}
		clips = append(clips, clip)
	}

	list, err := ffmpeg.ConcatList(clips)
	if err != nil {
		return types.RenderedVideo{}, fmt.Errorf("build concat list: %w", err)
	}
	listFile := filepath.Join(outDir, ConcatListName)
	if err := os.WriteFile(listFile, []byte(list), 0o644); err != nil {
		return types.RenderedVideo{}, err
	}

	video := filepath.Join(outDir, name+".mp4")
	if err := c.media.Concat(ctx, listFile, video); err != nil {
		return types.RenderedVideo{}, err
	}
	c.log.WithFields(logrus.Fields{"video": video, "clips": len(clips)}).Info("video composed")

	if previewPath == "" {
		previewPath = filepath.Join(outDir, name+"-preview.jpg")
	}
	if thumbnailPath == "" {
		thumbnailPath = filepath.Join(outDir, name+"-thumbnail.jpg")
	}
	return types.RenderedVideo{
		VideoPath:     video,
		PreviewPath:   previewPath,
		ThumbnailPath: thumbnailPath,
	}, nil
}
