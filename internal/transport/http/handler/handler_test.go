package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assistant/internal/app"
	"knowledge-assistant/internal/model"
	"knowledge-assistant/internal/transport/http/response"
)

type fakeAsker struct {
	got app.Query
	env *model.AnswerEnvelope
	err error
}

func (f *fakeAsker) Ask(_ context.Context, q app.Query) (*model.AnswerEnvelope, error) {
	f.got = q
	return f.env, f.err
}

type fakeDocuments map[string][]model.DocumentSummary

func (f fakeDocuments) Documents(role string) []model.DocumentSummary {
	if docs, ok := f[role]; ok {
		return docs
	}
	return []model.DocumentSummary{}
}

type fakeIngester struct {
	filename string
	text     string
	err      error
}

func (f *fakeIngester) Ingest(_ context.Context, filename, text string) (*app.IngestResult, error) {
	f.filename, f.text = filename, text
	if f.err != nil {
		return nil, f.err
	}
	return &app.IngestResult{Source: filename, ChunkCount: 1}, nil
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("other", "x"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAskReturnsEnvelope(t *testing.T) {
	asker := &fakeAsker{env: &model.AnswerEnvelope{
		Answer: "20 days", Confidence: 71.3, ResponseTime: 0.42, Sources: []string{"policy_hr.txt"},
	}}
	r := newEngine()
	r.POST("/ask", NewAskHandler(asker, fakeDocuments{}, false).Ask)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"leave?","role":"HR"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"20 days","confidence":71.3,"response_time":0.42,"sources":["policy_hr.txt"]}`, w.Body.String())
	assert.Equal(t, app.Query{Question: "leave?", Role: "HR"}, asker.got)
}

func TestAskBadPayload(t *testing.T) {
	r := newEngine()
	r.POST("/ask", NewAskHandler(&fakeAsker{}, fakeDocuments{}, false).Ask)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, decodeError(t, w).Code)
}

func TestAskClientError(t *testing.T) {
	asker := &fakeAsker{err: fmt.Errorf("%w: question is required", app.ErrInvalidInput)}
	r := newEngine()
	r.POST("/ask", NewAskHandler(asker, fakeDocuments{}, true).Ask)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"","role":"HR"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Detail, "question is required")
}

func TestAskInternalErrorSanitization(t *testing.T) {
	failure := errors.New("generate answer failed: api key rejected")
	for _, tc := range []struct {
		strict bool
		want   string
	}{
		{strict: false, want: failure.Error()},
		{strict: true, want: "internal error"},
	} {
		r := newEngine()
		r.POST("/ask", NewAskHandler(&fakeAsker{err: failure}, fakeDocuments{}, tc.strict).Ask)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q","role":"HR"}`)))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, response.CodeInternalServer, body.Code)
		assert.Equal(t, tc.want, body.Detail)
	}
}

func TestDocuments(t *testing.T) {
	docs := fakeDocuments{"HR": {{Source: "policy_hr.txt", Department: model.DepartmentHR, Chunks: 2}}}
	r := newEngine()
	r.GET("/documents", NewAskHandler(&fakeAsker{}, docs, false).Documents)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents?role=HR", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"HR","departments":["HR"],"documents":[{"source":"policy_hr.txt","department":"HR","chunks":2}]}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents?role=Sales", nil))
	assert.JSONEq(t, `{"role":"Sales","departments":[],"documents":[]}`, w.Body.String())
}

func TestUploadIndexesText(t *testing.T) {
	ing := &fakeIngester{}
	r := newEngine()
	r.POST("/upload", NewUploadHandler(ing, false).Upload)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "policy_hr.txt", []byte("Employees get 20 days of leave.")))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"policy_hr.txt uploaded and indexed successfully"}`, w.Body.String())
	assert.Equal(t, "policy_hr.txt", ing.filename)
	assert.Equal(t, "Employees get 20 days of leave.", ing.text)
}

func TestUploadCSVIsRenderedAsTable(t *testing.T) {
	ing := &fakeIngester{}
	r := newEngine()
	r.POST("/upload", NewUploadHandler(ing, false).Upload)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "servers.csv", []byte("host,port\nweb-1,8080\n")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, ing.text, "web-1")
	assert.Contains(t, ing.text, "8080")
}

func TestUploadRejections(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  []byte
		code     int
		detail   string
	}{
		{"unsupported", "slides.pptx", []byte("x"), response.CodeUnsupportedFormat, "Unsupported file format. Only TXT, CSV, PDF allowed."},
		{"empty", "blank.txt", []byte("  \n "), response.CodeEmptyDocument, "No readable text found in document."},
		{"missing", "", nil, response.CodeMissingFile, "missing file"},
		{"too large", "big.txt", bytes.Repeat([]byte("a"), maxUploadSize+1), response.CodeFileTooLarge, "file too large (max 10MB)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ing := &fakeIngester{}
			r := newEngine()
			r.POST("/upload", NewUploadHandler(ing, false).Upload)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartUpload(t, tc.filename, tc.content))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.detail, body.Detail)
			assert.Empty(t, ing.filename, "nothing reaches ingestion")
		})
	}
}

func TestUploadBodyIsBounded(t *testing.T) {
	content := bytes.Repeat([]byte("a"), 2*maxUploadSize)
	cases := map[string]func(*http.Request){
		"declared length": func(*http.Request) {},
		"unknown length": func(req *http.Request) {
			req.ContentLength = -1
			req.Body = io.NopCloser(req.Body)
		},
	}
	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			ing := &fakeIngester{}
			r := newEngine()
			r.POST("/upload", NewUploadHandler(ing, false).Upload)

			req := multipartUpload(t, "huge.txt", content)
			prepare(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, response.CodeFileTooLarge, decodeError(t, w).Code)
			assert.Empty(t, ing.filename)
		})
	}
}

func TestUploadInvalidUTF8(t *testing.T) {
	r := newEngine()
	r.POST("/upload", NewUploadHandler(&fakeIngester{}, false).Upload)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "notes.txt", []byte{0xff, 0xfe, 0x00}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadIngestFailure(t *testing.T) {
	ing := &fakeIngester{err: errors.New("persist index failed: disk full")}
	r := newEngine()
	r.POST("/upload", NewUploadHandler(ing, true).Upload)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "deploy.txt", []byte("steps")))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeError(t, w).Detail)
}

func TestRootAndHealth(t *testing.T) {
	down := errors.New("dial tcp 127.0.0.1:6379: connection refused")
	h := NewHealthHandler("knowledge-assistant", "test", time.Now().Add(-time.Minute), func() int { return 12 },
		map[string]DependencyCheck{
			"mysql":    nil,
			"redis":    func(context.Context) error { return down },
			"rabbitmq": func(context.Context) error { return nil },
		})
	r := newEngine()
	r.GET("/", h.Root)
	r.GET("/healthz", h.Check)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var root map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))
	assert.Equal(t, "Backend running", root["status"])
	_, err := time.Parse(time.RFC3339, root["time"].(string))
	assert.NoError(t, err)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var health struct {
		Code         int                         `json:"code"`
		Status       string                      `json:"status"`
		App          string                      `json:"app"`
		Indexed      int                         `json:"indexed_chunks"`
		UptimeSec    int                         `json:"uptime_sec"`
		Dependencies map[string]dependencyStatus `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, response.CodeServiceDegraded, health.Code)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "knowledge-assistant", health.App)
	assert.Equal(t, 12, health.Indexed)
	assert.GreaterOrEqual(t, health.UptimeSec, 59)
	assert.False(t, health.Dependencies["mysql"].Enabled)
	assert.False(t, health.Dependencies["redis"].OK)
	assert.Equal(t, down.Error(), health.Dependencies["redis"].Message)
	assert.True(t, health.Dependencies["rabbitmq"].OK)
}

func TestHealthAllDependenciesUp(t *testing.T) {
	h := NewHealthHandler("knowledge-assistant", "test", time.Now(), func() int { return 0 },
		map[string]DependencyCheck{"mysql": nil, "redis": func(context.Context) error { return nil }})
	r := newEngine()
	r.GET("/healthz", h.Check)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "code")
}
