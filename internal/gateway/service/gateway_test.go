package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/factory"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/openrouter"
	"github.com/lk2023060901/llm-gateway-client/internal/gateway/biz"
	apperrors "github.com/lk2023060901/llm-gateway-client/internal/pkg/errors"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/minio"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/response"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/sse"
)

type staticRepo catalog.Catalog

func (r staticRepo) Load(context.Context) (catalog.Catalog, error) {
	return catalog.Catalog(r).Clone(), nil
}

type staticPolicy struct {
	opts   catalog.SelectOptions
	budget catalog.Quality
}

func (p staticPolicy) SelectOptions() catalog.SelectOptions { return p.opts }
func (p staticPolicy) Budget() catalog.Quality              { return p.budget }

// upstream 模拟 OpenRouter：记录最后一次补全请求体
type upstream struct {
	*httptest.Server

	mu   sync.Mutex
	last []byte
	// hold 为 true 时发送第一个块后阻塞直到连接被取消
	hold bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			io.WriteString(w, `{"data":[{"id":"remote/one","name":"Remote One","context_length":4096}]}`)
		case "/chat/completions":
			body, _ := io.ReadAll(r.Body)
			u.mu.Lock()
			u.last = body
			u.mu.Unlock()

			if gjson.GetBytes(body, "model").Str == "bad/model" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":{"message":"unknown model"}}`)
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
			flusher.Flush()
			if u.hold {
				select {
				case <-r.Context().Done():
				case <-time.After(5 * time.Second):
				}
				return
			}
			io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
			io.WriteString(w, "data: {\"usage\":{\"total_tokens\":7}}\n\n")
			io.WriteString(w, "data: [DONE]\n\n")
			flusher.Flush()
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) lastBody() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.last
}

type fixture struct {
	router *gin.Engine
	hub    *sse.Hub
	root   string
	up     *upstream
}

func newFixture(t *testing.T, policy staticPolicy, opts Options, keyFunc func() string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := newUpstream(t)
	b := factory.NewConfig().WithBaseURL(up.URL).WithMaxRetries(0)
	if keyFunc != nil {
		b = b.WithAPIKeyFunc(keyFunc)
	} else {
		b = b.WithAPIKey("sk-test")
	}
	client, err := openrouter.New(b.Build(), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	root := t.TempDir()
	if policy.budget == "" {
		policy.budget = catalog.QualityMid
	}
	uc := biz.NewGatewayUseCase(
		staticRepo(catalog.Default()),
		client,
		catalog.NewFetcher(client, nil, logger.NewNop()),
		content.NewMessageBuilder(content.DirResolver{Root: root}, 0, logger.NewNop()),
		policy,
		time.Minute,
		logger.NewNop(),
	)

	if opts.Hub == nil {
		opts.Hub = sse.NewHub()
	}
	if opts.Attachments.Root == "" && opts.Attachments.Uploader == nil {
		opts.Attachments.Root = root
	}
	svc := NewGatewayService(uc, opts, logger.NewNop())

	r := gin.New()
	svc.RegisterRoutes(r.Group("/v1"))
	return &fixture{router: r, hub: opts.Hub, root: root, up: up}
}

func (f *fixture) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) postJSON(target, body string) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, target, strings.NewReader(body), "application/json")
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var r response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r), w.Body.String())
	return r
}

func events(body string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			out = append(out, data)
		}
	}
	return out
}

func TestStreamChatSelectsModel(t *testing.T) {
	f := newFixture(t, staticPolicy{}, Options{}, nil)

	w := f.postJSON("/v1/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Stream-ID"))

	assert.Equal(t, []string{
		`{"delta":"Hel"}`,
		`{"delta":"lo"}`,
		`{"usage":{"total_tokens":7}}`,
		`{"end":true}`,
	}, events(w.Body.String()))

	want, err := catalog.Select(catalog.Default(), catalog.TaskChat, catalog.QualityMid, catalog.SelectOptions{})
	require.NoError(t, err)
	sent := f.up.lastBody()
	assert.Equal(t, want.ID, gjson.GetBytes(sent, "model").Str)
	assert.True(t, gjson.GetBytes(sent, "stream").Bool())
	assert.False(t, gjson.GetBytes(sent, "include_reasoning").Bool())
	assert.Equal(t, 0, f.hub.Count())
}

func TestStreamChatResolvesAlias(t *testing.T) {
	f := newFixture(t, staticPolicy{}, Options{}, nil)

	w := f.postJSON("/v1/chat/stream", `{"model":"claude sonnet 4.5","show_reasoning":true,"max_tokens":64,"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	sent := f.up.lastBody()
	assert.Equal(t, "anthropic/claude-sonnet-4.5", gjson.GetBytes(sent, "model").Str)
	assert.True(t, gjson.GetBytes(sent, "include_reasoning").Bool())
	assert.Equal(t, int64(64), gjson.GetBytes(sent, "max_tokens").Int())
}

func TestStreamChatWithAttachment(t *testing.T) {
	f := newFixture(t, staticPolicy{}, Options{}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "cat.png"), []byte("\x89PNG\r\n\x1a\nfake"), 0o600))

	w := f.postJSON("/v1/chat/stream", `{"messages":[{"role":"user","content":"what is this"}],"attachments":[{"rel":"cat.png"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	sent := f.up.lastBody()
	model := gjson.GetBytes(sent, "model").Str
	spec, ok := catalog.Default().Find(model)
	require.True(t, ok, model)
	assert.True(t, spec.HasVision(), "attachments select a vision model")

	parts := gjson.GetBytes(sent, "messages.0.content")
	require.True(t, parts.IsArray())
	assert.Equal(t, "text", parts.Get("0.type").Str)
	assert.Equal(t, "image_url", parts.Get("1.type").Str)
	assert.True(t, strings.HasPrefix(parts.Get("1.image_url.url").Str, "data:image/png;base64,"))
}

func TestStreamChatErrors(t *testing.T) {
	tests := []struct {
		name       string
		policy     staticPolicy
		keyFunc    func() string
		body       string
		wantStatus int
		wantCode   int
	}{
		{"no messages", staticPolicy{}, nil, `{"messages":[]}`, http.StatusBadRequest, apperrors.ErrInvalidParams},
		{"bad json", staticPolicy{}, nil, `{`, http.StatusBadRequest, apperrors.ErrInvalidParams},
		{"unknown task", staticPolicy{}, nil, `{"task":"dance","messages":[{"role":"user","content":"x"}]}`, http.StatusBadRequest, apperrors.ErrInvalidParams},
		{"unknown budget", staticPolicy{}, nil, `{"budget":"ultra","messages":[{"role":"user","content":"x"}]}`, http.StatusBadRequest, apperrors.ErrInvalidParams},
		{"no eligible", staticPolicy{opts: catalog.SelectOptions{Allowed: []string{"nobody/none"}}}, nil, `{"messages":[{"role":"user","content":"x"}]}`, http.StatusUnprocessableEntity, apperrors.ErrCatalogNoEligible},
		{"upstream rejects", staticPolicy{}, nil, `{"model":"bad/model","messages":[{"role":"user","content":"x"}]}`, http.StatusBadGateway, apperrors.ErrGatewayUpstream},
		{"missing key", staticPolicy{}, func() string { return "" }, `{"messages":[{"role":"user","content":"x"}]}`, http.StatusInternalServerError, apperrors.ErrGatewayConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.policy, Options{}, tt.keyFunc)
			w := f.postJSON("/v1/chat/stream", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Code)
		})
	}
}

func TestStopStream(t *testing.T) {
	f := newFixture(t, staticPolicy{}, Options{}, nil)
	f.up.hold = true

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/stream", "application/json",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	id := resp.Header.Get("X-Stream-ID")
	require.NotEmpty(t, id)
	reader := bufio.NewReader(resp.Body)
	first, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: {\"delta\":\"Hel\"}\n", first)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/chat/streams/"+id, nil)
	stopResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	stopResp.Body.Close()
	assert.Equal(t, http.StatusOK, stopResp.StatusCode)

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"end":true}`}, events(string(rest)))

	w := f.do(http.MethodDelete, "/v1/chat/streams/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModelsEndpoints(t *testing.T) {
	f := newFixture(t, staticPolicy{}, Options{}, nil)

	w := f.do(http.MethodGet, "/v1/models", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "data.models").Array(), 16)

	w = f.do(http.MethodGet, "/v1/models/remote", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	remote := gjson.Get(w.Body.String(), "data.models").Array()
	require.Len(t, remote, 1)
	assert.Equal(t, "remote/one", remote[0].Get("id").Str)

	w = f.do(http.MethodGet, "/v1/models/select?task=vision&budget=high", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	want, err := catalog.Select(catalog.Default(), catalog.TaskVision, catalog.QualityHigh, catalog.SelectOptions{})
	require.NoError(t, err)
	assert.Equal(t, want.ID, gjson.Get(w.Body.String(), "data.id").Str)

	w = f.do(http.MethodGet, "/v1/models/select?task=sing", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeTranscriber struct {
	name string
	data []byte
}

func (t *fakeTranscriber) Transcribe(_ context.Context, src content.Source) (string, error) {
	rs, ok := src.(content.ReaderSource)
	if !ok {
		return "", errors.New("unexpected source")
	}
	t.name = rs.Name
	t.data, _ = io.ReadAll(rs)
	return "hello world", nil
}

func multipartBody(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestTranscribe(t *testing.T) {
	tr := &fakeTranscriber{}
	f := newFixture(t, staticPolicy{}, Options{Transcriber: tr}, nil)

	body, ct := multipartBody(t, "memo.m4a", []byte("audio-bytes"))
	w := f.do(http.MethodPost, "/v1/audio/transcriptions", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "hello world", gjson.Get(w.Body.String(), "data.text").Str)
	assert.Equal(t, "memo.m4a", tr.name)
	assert.Equal(t, []byte("audio-bytes"), tr.data)

	f = newFixture(t, staticPolicy{}, Options{}, nil)
	body, ct = multipartBody(t, "memo.m4a", []byte("x"))
	w = f.do(http.MethodPost, "/v1/audio/transcriptions", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUploadAttachmentLocal(t *testing.T) {
	f := newFixture(t, staticPolicy{}, Options{}, nil)

	body, ct := multipartBody(t, "notes.txt", []byte("remember the milk"))
	w := f.do(http.MethodPost, "/v1/attachments", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rel := gjson.Get(w.Body.String(), "data.rel").Str
	assert.True(t, strings.HasSuffix(rel, "/notes.txt"), rel)
	assert.Equal(t, int64(17), gjson.Get(w.Body.String(), "data.size").Int())

	saved, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", string(saved))
}

type fakeUploader struct {
	bucket, key, contentType string
	data                     []byte
}

func (u *fakeUploader) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	u.bucket, u.key, u.contentType = bucket, key, contentType
	u.data, _ = io.ReadAll(r)
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestUploadAttachmentObjectStore(t *testing.T) {
	up := &fakeUploader{}
	f := newFixture(t, staticPolicy{}, Options{Attachments: AttachmentTarget{Uploader: up, Bucket: "files", Prefix: "chat"}}, nil)

	body, ct := multipartBody(t, "../../etc/photo.png", []byte("png"))
	w := f.do(http.MethodPost, "/v1/attachments", body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	rel := gjson.Get(w.Body.String(), "data.rel").Str
	assert.Equal(t, "files", up.bucket)
	assert.Equal(t, "chat/"+rel, up.key)
	assert.True(t, strings.HasSuffix(rel, "/photo.png"))
	assert.Equal(t, []byte("png"), up.data)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", catalog.ErrNoEligibleModel), apperrors.ErrCatalogNoEligible},
		{&catalog.ValidationError{Index: 1, Field: "id", Reason: "is required"}, apperrors.ErrCatalogInvalid},
		{content.ErrUnsupportedRemote, apperrors.ErrContentUnsupported},
		{content.ErrOutsideRoot, apperrors.ErrContentUnreadable},
		{openrouter.ErrMissingModel, apperrors.ErrInvalidParams},
		{apperrors.New(apperrors.ErrNotFound), apperrors.ErrNotFound},
		{errors.New("boom"), apperrors.ErrInternalServer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, apperrors.ExtractCode(classify(tt.err)), tt.err.Error())
	}
	assert.NoError(t, classify(nil))
}
