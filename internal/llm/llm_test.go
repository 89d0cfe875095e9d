package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "station/internal/errors"
	"station/internal/store"
)

func newKeyStore(t *testing.T, keys ...string) *store.KeyList {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api_keys.json")
	data, err := json.Marshal(keys)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return store.NewKeyList(path, nil)
}

func TestKeyRingRotationAndDrop(t *testing.T) {
	ring := NewKeyRing(newKeyStore(t, "key-a", "key-b", "key-c"), nil)

	key, err := ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "key-a", key)

	for _, want := range []string{"key-b", "key-c", "key-a"} {
		key, err = ring.Rotate()
		require.NoError(t, err)
		assert.Equal(t, want, key)
	}

	require.NoError(t, ring.Drop("key-a"))
	key, err = ring.Current()
	require.NoError(t, err)
	assert.Equal(t, "key-b", key)
}

func TestKeyRingEmptyIsFatal(t *testing.T) {
	ring := NewKeyRing(newKeyStore(t), nil)
	_, err := ring.Current()
	require.Error(t, err)
	assert.True(t, serrors.IsFatal(err))
	assert.ErrorIs(t, err, ErrNoKeys)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		fatal     bool
		transient bool
	}{
		{name: "location", err: errors.New("User location is not supported for the API use."), fatal: true},
		{name: "prohibited", err: errors.New("blocked: PROHIBITED_CONTENT"), fatal: true},
		{name: "invalid key", err: errors.New("API key not valid. Please pass a valid API key."), transient: true},
		{name: "quota", err: errors.New("You exceeded your current quota, please check your plan"), transient: true},
		{name: "network", err: errors.New("dial tcp: connection refused"), transient: true},
		{name: "api 503", err: genaiError(503, "overloaded"), transient: true},
		{name: "api 400", err: genaiError(400, "bad field")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.fatal, serrors.IsFatal(got))
			assert.Equal(t, tt.transient, serrors.IsTransient(got))
			assert.Same(t, got, ClassifyError(got), "classification must be stable")
		})
	}
	assert.NoError(t, ClassifyError(nil))
}

type fakeGemini struct {
	mu   sync.Mutex
	keys []string
	// reply maps an API key to a status code and body.
	reply func(key string) (int, string)
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	key := r.Header.Get("x-goog-api-key")
	if key == "" {
		key = r.URL.Query().Get("key")
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()

	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}
	code, body := f.reply(key)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

func okBody(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]},"finishReason":"STOP"}]}`, text)
}

func errBody(code int, status, msg string) string {
	return fmt.Sprintf(`{"error":{"code":%d,"message":%q,"status":%q}}`, code, msg, status)
}

func TestGenAIClientComplete(t *testing.T) {
	fake := &fakeGemini{reply: func(string) (int, string) { return http.StatusOK, okBody("Wait($$$$$5$$$$$)") }}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewGenAIClient("", NewKeyRing(newKeyStore(t, "key-a"), nil), nil, WithBaseURL(srv.URL))
	assert.Equal(t, DefaultModel, client.Model())

	text, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Wait($$$$$5$$$$$)", text)
	assert.Contains(t, fake.keys, "key-a")
}

func TestGenAIClientKeyErrors(t *testing.T) {
	fake := &fakeGemini{reply: func(key string) (int, string) {
		switch key {
		case "bad":
			return http.StatusBadRequest, errBody(400, "INVALID_ARGUMENT", "API key not valid. Please pass a valid API key.")
		case "spent":
			return http.StatusTooManyRequests, errBody(429, "RESOURCE_EXHAUSTED", "You exceeded your current quota.")
		default:
			return http.StatusOK, okBody("done")
		}
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	keys := newKeyStore(t, "bad", "spent", "good")
	client := NewGenAIClient("gemini-test", NewKeyRing(keys, nil), nil, WithBaseURL(srv.URL))

	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, serrors.IsTransient(err))
	remaining, err := keys.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"spent", "good"}, remaining)

	_, err = client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, serrors.IsTransient(err))

	text, err := client.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	require.NotEmpty(t, fake.keys)
	assert.Equal(t, "bad", fake.keys[0])
	assert.Contains(t, fake.keys, "spent")
	assert.Equal(t, "good", fake.keys[len(fake.keys)-1])
}

func TestGenAIClientLocationIsFatal(t *testing.T) {
	fake := &fakeGemini{reply: func(string) (int, string) {
		return http.StatusBadRequest, errBody(400, "FAILED_PRECONDITION", "User location is not supported for the API use.")
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client := NewGenAIClient("gemini-test", NewKeyRing(newKeyStore(t, "k"), nil), nil, WithBaseURL(srv.URL))
	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, serrors.IsFatal(err))
}

func fastRetry() serrors.RetryConfig {
	return serrors.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestRetryClientRetriesTransientFailures(t *testing.T) {
	calls := 0
	base := ClientFunc{Name: "fake", Fn: func(context.Context, string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("connection reset by peer")
		}
		return "ok", nil
	}}
	client := WrapWithRetry(base, fastRetry(), serrors.DefaultCircuitBreakerConfig(), nil)

	text, err := client.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "fake", client.Model())
}

func TestRetryClientStopsOnFatal(t *testing.T) {
	calls := 0
	base := ClientFunc{Name: "fake", Fn: func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("PROHIBITED_CONTENT")
	}}
	client := NewRetryClient(base, fastRetry(), nil, nil)

	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, serrors.IsFatal(err))
	assert.Equal(t, 1, calls)
}

func TestRetryClientGivesUp(t *testing.T) {
	calls := 0
	base := ClientFunc{Name: "fake", Fn: func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("i/o timeout")
	}}
	client := NewRetryClient(base, fastRetry(), nil, nil)

	_, err := client.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, serrors.IsFatal(err))
	assert.Equal(t, 4, calls)
}
