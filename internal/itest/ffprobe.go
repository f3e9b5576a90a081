//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type mediaInfo struct {
	DurationSec float64
	Width       int
	Height      int
	HasAudio    bool
}

// probeMedia reads container duration and stream layout with ffprobe.
func probeMedia(path string) (mediaInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,width,height",
		"-of", "json",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return mediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}

	var raw struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return mediaInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	sec, err := strconv.ParseFloat(raw.Format.Duration, 64)
	if err != nil {
		return mediaInfo{}, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}

	info := mediaInfo{DurationSec: sec}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			info.Width, info.Height = s.Width, s.Height
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}
