package pollinations

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/reelgen/internal/domain/script"
	"github.com/forPelevin/reelgen/internal/ports"
)

const (
	Provider = "pollinations"

	DefaultModel = "flux"
	DefaultSize  = "1280x720"

	defaultBaseURL = "https://image.pollinations.ai"
	requestTimeout = 2 * time.Minute
	minImageBytes  = 100
)

type Config struct {
	BaseURL string
	Model   string
}

type Adapter struct {
	baseURL string
	model   string
	client  *http.Client
}

func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Adapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *Adapter) GenerateImage(ctx context.Context, req ports.ImageRequest) error {
	return ports.Wrap(Provider, a.generate(ctx, req))
}

func (a *Adapter) generate(ctx context.Context, req ports.ImageRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return errors.New("empty image prompt")
	}
	w, h, err := parseSize(req.Size)
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("width", strconv.Itoa(w))
	q.Set("height", strconv.Itoa(h))
	q.Set("model", a.model)
	q.Set("nologo", "true")
	q.Set("seed", strconv.FormatUint(uint64(seed(req.Prompt)), 10))
	endpoint := a.baseURL + "/prompt/" + url.PathEscape(req.Prompt) + "?" + q.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	hr, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	hr.Header.Set("Accept", "image/*")

	resp, err := a.client.Do(hr)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timeout after %s", requestTimeout)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: unexpected content type %q", script.ErrShape, ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) < minImageBytes {
		return fmt.Errorf("%w: image too small (%d bytes)", script.ErrShape, len(data))
	}

	if err := os.MkdirAll(filepath.Dir(req.OutFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.OutFile, data, 0o644)
}

// parseSize reads "WxH"; an empty size means DefaultSize.
func parseSize(s string) (int, int, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultSize
	}
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid image size %q (want WxH)", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid image size %q (want WxH)", s)
	}
	return w, h, nil
}

// seed keeps retries of the same prompt on the same image.
func seed(prompt string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum32() % 1_000_000
}
