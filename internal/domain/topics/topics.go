package topics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/reelgen/internal/types"
)

const maxSlugRunes = 80

var fallback = []types.Topic{
	{
		ID:          "example",
		Title:       "Example topic",
		Description: "Replace topics.json with your own list of topics.",
	},
}

// Fallback returns the built-in topic list used when no list file is usable.
func Fallback() []types.Topic {
	return append([]types.Topic(nil), fallback...)
}

// Load reads a topic list from a JSON or YAML file. A missing file yields the
// fallback list. A file that cannot be decoded yields the fallback list and a
// non-nil error so the caller can report it.
func Load(path string) ([]types.Topic, error) {
	if path == "" {
		return Fallback(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Fallback(), nil
		}
		return Fallback(), fmt.Errorf("read topics: %w", err)
	}

	var raw []types.Topic
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &raw)
	default:
		err = json.Unmarshal(b, &raw)
	}
	if err != nil {
		return Fallback(), fmt.Errorf("decode topics %s: %w", path, err)
	}

	out := make([]types.Topic, 0, len(raw))
	for _, t := range raw {
		t.ID = strings.TrimSpace(t.ID)
		t.Title = strings.TrimSpace(t.Title)
		t.Description = strings.TrimSpace(t.Description)
		if t.ID == "" || t.Title == "" || t.Description == "" {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return Fallback(), nil
	}
	return out, nil
}

// Pick returns the topic with the given id, or a random one when id is empty
// or unknown.
func Pick(list []types.Topic, id string, rnd *rand.Rand) types.Topic {
	if len(list) == 0 {
		list = fallback
	}
	if id != "" {
		for _, t := range list {
			if t.ID == id {
				return t
			}
		}
	}
	if rnd == nil {
		return list[rand.Intn(len(list))]
	}
	return list[rnd.Intn(len(list))]
}

// Slug turns a title into a file name segment.
func Slug(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if r := []rune(out); len(r) > maxSlugRunes {
		out = strings.TrimRight(string(r[:maxSlugRunes]), "-")
	}
	return out
}

// VideoName picks the output base name for a topic.
func VideoName(t types.Topic) string {
	if s := Slug(t.Title); s != "" {
		return s
	}
	if s := Slug(t.ID); s != "" {
		return s
	}
	return "video"
}
