package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FrameWidth  = 1280
	FrameHeight = 720
	FrameRate   = 30
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     logrus.FieldLogger
}

func New(ffmpegPath, ffprobePath string, log logrus.FieldLogger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: log.WithField("component", "ffmpeg")}
}

func (a *Adapter) SolidFrame(ctx context.Context, color string, width, height int, outFile string) error {
	return a.run(ctx, "solid frame",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d", color, width, height),
		"-frames:v", "1",
		outFile,
	)
}

func (a *Adapter) SilentAudio(ctx context.Context, d time.Duration, outFile string) error {
	return a.run(ctx, "silent audio",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", fmtSeconds(d),
		"-q:a", "9",
		"-acodec", "libmp3lame",
		outFile,
	)
}

func (a *Adapter) TranscodeAudio(ctx context.Context, inFile, outFile string) error {
	return a.run(ctx, "transcode audio",
		"-i", inFile,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outFile,
	)
}

// StillClip renders a constant frame rate 1280x720 clip of exactly d from a
// still image and an audio track. The image is letterboxed and the audio is
// padded with silence when it is shorter than d.
func (a *Adapter) StillClip(ctx context.Context, imageFile, audioFile string, d time.Duration, outFile string) error {
	return a.run(ctx, "still clip",
		"-loop", "1",
		"-framerate", strconv.Itoa(FrameRate),
		"-i", imageFile,
		"-i", audioFile,
		"-t", fmtSeconds(d),
		"-vf", stillFilter(FrameWidth, FrameHeight, FrameRate),
		"-af", "apad",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-tune", "stillimage",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(FrameRate),
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "44100",
		"-ac", "2",
		outFile,
	)
}

// Concat joins the files listed in an ffmpeg concat manifest without
// re-encoding.
func (a *Adapter) Concat(ctx context.Context, listFile, outFile string) error {
	return a.run(ctx, "concat",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	)
}

func (a *Adapter) ConvertFrame(ctx context.Context, inFile, outFile string) error {
	return a.run(ctx, "convert frame",
		"-i", inFile,
		"-frames:v", "1",
		"-q:v", "2",
		outFile,
	)
}

func (a *Adapter) ProbeDuration(ctx context.Context, inFile string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inFile,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) run(ctx context.Context, op string, args ...string) error {
	args = append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	a.log.WithField("args", strings.Join(args, " ")).Debugf("ffmpeg %s", op)

	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

// ConcatList renders the concat demuxer manifest for files, in order.
func ConcatList(files []string) (string, error) {
	var b strings.Builder
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", err
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String(), nil
}

func stillFilter(w, h, fps int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d,format=yuv420p",
		w, h, w, h, fps,
	)
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
