package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    string
		wantText   string
		wantTokens int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "gen-123",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "42"}}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
			}`,
			wantText:   "42",
			wantTokens: 3,
		},
		{
			name:     "reasoning_fallback",
			status:   http.StatusOK,
			body:     `{"id":"gen-124","choices":[{"index":0,"message":{"role":"assistant","content":"","reasoning":"thinking out loud"}}],"usage":{}}`,
			wantText: "thinking out loud",
		},
		{
			name:    "rate_limit",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"code": 429, "message": "rate limit exceeded"}}`,
			wantErr: "status 429",
		},
		{
			name:    "server_error_raw_body",
			status:  http.StatusInternalServerError,
			body:    `upstream exploded`,
			wantErr: "upstream exploded",
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
		{
			name:    "no_choices",
			status:  http.StatusOK,
			body:    `{"id":"gen-125","choices":[],"usage":{}}`,
			wantErr: "no choices",
		},
		{
			name:    "error_in_200_body",
			status:  http.StatusOK,
			body:    `{"error":{"code":402,"message":"insufficient credits"}}`,
			wantErr: "insufficient credits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))

			resp, err := client.Complete(context.Background(), CompletionRequest{
				Model:       "openai/gpt-4o-mini",
				Prompt:      "What is 6 times 7?",
				Temperature: 0.7,
				MaxTokens:   100,
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantText, resp.Text)
			assert.Equal(t, tt.wantTokens, resp.CompletionTokens)
			assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
		})
	}
}

func TestCompleteSendsRequestFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "anthropic/claude-3-haiku", req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 0.001)
		assert.Equal(t, 500, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hello there", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}],"usage":{}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), CompletionRequest{
		Model:       "anthropic/claude-3-haiku",
		Prompt:      "hello there",
		Temperature: 0.7,
		MaxTokens:   500,
	})
	require.NoError(t, err)
}

func TestCompleteEmptyPrompt(t *testing.T) {
	t.Parallel()
	client := NewClient("test-key")
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty prompt")
}

func TestCompleteTransportErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), CompletionRequest{
		Model:  "m",
		Prompt: "p",
	})
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Zero(t, gwErr.StatusCode)
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":"1","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := client.Complete(context.Background(), CompletionRequest{
		Model:  "m",
		Prompt: "p",
	})
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()
	c := NewClient("my-key")
	hc := c.(*httpClient)
	assert.Equal(t, "my-key", hc.apiKey)
	assert.Equal(t, defaultBaseURL, hc.baseURL)
	assert.Equal(t, defaultTimeout, hc.http.Timeout)
}

func TestErrorString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "gateway: status 502: bad gateway", (&Error{StatusCode: 502, Message: "bad gateway"}).Error())
	assert.Equal(t, "gateway: connection refused", (&Error{Message: "connection refused"}).Error())
}
