package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

type upload struct {
	auth     string
	model    string
	filename string
	data     string
}

func whisperServer(t *testing.T, got *upload) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		got.auth = r.Header.Get("Authorization")
		got.model = r.FormValue("model")
		f, hdr, err := r.FormFile("file")
		if assert.NoError(t, err) {
			data, _ := io.ReadAll(f)
			got.filename = hdr.Filename
			got.data = string(data)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  hello world \n"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribeBytes(t *testing.T) {
	var got upload
	srv := whisperServer(t, &got)
	c := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, logger.NewNop())

	text, err := c.Transcribe(context.Background(), content.ByteSource("RIFFdata"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "Bearer sk-test", got.auth)
	assert.Equal(t, "whisper-1", got.model)
	assert.Equal(t, "audio.mp3", got.filename)
	assert.Equal(t, "RIFFdata", got.data)
}

func TestTranscribePathAndReader(t *testing.T) {
	var got upload
	srv := whisperServer(t, &got)
	key := ""
	c := New(Config{APIKeyFunc: func() string { return key }, BaseURL: srv.URL + "/v1", Model: "whisper-large"}, nil)

	path := filepath.Join(t.TempDir(), "memo.wav")
	require.NoError(t, os.WriteFile(path, []byte("wave"), 0o600))

	_, err := c.Transcribe(context.Background(), content.PathSource(path))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	key = "sk-late"
	_, err = c.Transcribe(context.Background(), content.PathSource(path))
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-late", got.auth)
	assert.Equal(t, "memo.wav", got.filename)
	assert.Equal(t, "whisper-large", got.model)

	_, err = c.Transcribe(context.Background(), content.ReaderSource{Reader: strings.NewReader("ogg"), Name: "dir/voice.ogg"})
	require.NoError(t, err)
	assert.Equal(t, "voice.ogg", got.filename)
	assert.Equal(t, "ogg", got.data)
}

func TestTranscribeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()
	c := New(Config{APIKey: "sk-bad", BaseURL: srv.URL + "/v1"}, logger.NewNop())

	_, err := c.Transcribe(context.Background(), content.ByteSource("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")

	_, err = c.Transcribe(context.Background(), content.PathSource(filepath.Join(t.TempDir(), "missing.mp3")))
	assert.Error(t, err)

	_, err = c.Transcribe(context.Background(), nil)
	assert.ErrorIs(t, err, content.ErrNilSource)
}
