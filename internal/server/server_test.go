package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralchat/internal/app"
	"neuralchat/internal/chunker"
	"neuralchat/internal/config"
	"neuralchat/internal/extract"
	"neuralchat/internal/index"
	"neuralchat/internal/llm"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"a grounded answer"}}]}`))
	}))
	t.Cleanup(llmSrv.Close)
	ytSrv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ytSrv.Close)

	cfg := &config.Config{
		ChunkSize:    12000,
		ChunkOverlap: 1200,
		TopK:         4,
		IndexFile:    filepath.Join(t.TempDir(), "test.index"),
	}
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	require.NoError(t, err)

	var embed chromem.EmbeddingFunc = func(_ context.Context, _ string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	a := app.NewWith(
		cfg,
		ch,
		index.NewStore(cfg.IndexFile, embed),
		llm.NewClient(llm.Config{BaseURL: llmSrv.URL, Model: "test-model", Timeout: time.Second}),
		extract.NewTranscriptClient(ytSrv.URL, time.Second),
	)

	srv := httptest.NewServer(New(a, t.TempDir(), "*").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func multipartUpload(t *testing.T, files map[string]string, youtubeURL string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if youtubeURL != "" {
		require.NoError(t, mw.WriteField("youtube_url", youtubeURL))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestUploadThenAsk(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, map[string]string{"sky.txt": "The sky is blue."}, "")
	resp, err := http.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var upload struct {
		Message       string             `json:"message"`
		UploadedFiles []app.UploadedFile `json:"uploaded_files"`
	}
	decodeBody(t, resp, &upload)
	assert.NotEmpty(t, upload.Message)
	require.Len(t, upload.UploadedFiles, 1)
	assert.Equal(t, "sky.txt", upload.UploadedFiles[0].Name)
	assert.Equal(t, "text", upload.UploadedFiles[0].Type)

	resp, err = http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"What color is the sky?"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ask struct {
		Answer string `json:"answer"`
	}
	decodeBody(t, resp, &ask)
	assert.Equal(t, "a grounded answer", ask.Answer)
}

func TestUpload_NothingToProcess(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, nil, "")
	resp, err := http.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, resp, &e)
	assert.Equal(t, "no content to process", e.Detail)
}

func TestUpload_InvalidYouTubeURL(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, nil, "https://example.com/watch?v=xyz")
	resp, err := http.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, resp, &e)
	assert.Equal(t, "invalid YouTube URL", e.Detail)
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartUpload(t, map[string]string{"image.png": "binary"}, "")
	resp, err := http.Post(srv.URL+"/upload", contentType, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAsk_BeforeUpload(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"anything"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var e struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, resp, &e)
	assert.Contains(t, e.Detail, "no content has been ingested yet")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"  "}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ask")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/ask", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
