//go:build integration

package itest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeOpenAI serves chat completions for the script and cover schemas so the
// offline providers can run the whole pipeline without network access.
type fakeOpenAI struct {
	*httptest.Server
	calls atomic.Int32
	// failFirst makes the first n requests answer 503.
	failFirst int32
}

func newFakeOpenAI(t *testing.T, scenes []map[string]any) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		if n <= f.failFirst {
			http.Error(w, `{"error":{"message":"overloaded","type":"server_error"}}`, http.StatusServiceUnavailable)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}

		var req struct {
			ResponseFormat struct {
				JSONSchema struct {
					Name string `json:"name"`
				} `json:"json_schema"`
			} `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		var content any
		switch req.ResponseFormat.JSONSchema.Name {
		case "video_script":
			content = map[string]any{"scenes": scenes}
		default:
			content = map[string]any{
				"previewPrompt":   "a calm harbour at dawn",
				"thumbnailPrompt": "a giant wave over a lighthouse",
			}
		}
		cb, _ := json.Marshal(content)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-itest",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": string(cb)},
			}},
		})
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeOpenAI) baseURL() string { return f.URL + "/v1/" }
