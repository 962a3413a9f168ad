package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"knowledge-assistant/internal/app"
	"knowledge-assistant/internal/pkg/textextract"
	"knowledge-assistant/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

// maxRequestSize bounds the whole multipart body: the file plus headers.
const maxRequestSize = maxUploadSize + 1<<10

const (
	msgUnsupported = "Unsupported file format. Only TXT, CSV, PDF allowed."
	msgNoText      = "No readable text found in document."
	msgTooLarge    = "file too large (max 10MB)"
)

type Ingester interface {
	Ingest(ctx context.Context, filename, text string) (*app.IngestResult, error)
}

type UploadHandler struct {
	ingester     Ingester
	strictErrors bool
}

func NewUploadHandler(ingester Ingester, strictErrors bool) *UploadHandler {
	return &UploadHandler{ingester: ingester, strictErrors: strictErrors}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	if c.Request.ContentLength > maxRequestSize {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, msgTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestSize)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, msgTooLarge)
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeMissingFile, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, msgTooLarge)
		return
	}
	if !textextract.Supported(file.Filename) {
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, msgUnsupported)
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	text, err := textextract.Extract(file.Filename, data)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to extract text: "+err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeEmptyDocument, msgNoText)
		return
	}

	if _, err := h.ingester.Ingest(c.Request.Context(), file.Filename, text); err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyDocument):
			response.Error(c, http.StatusBadRequest, response.CodeEmptyDocument, msgNoText)
		case app.IsClientError(err):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, app.ClientError(err, h.strictErrors))
		}
		return
	}

	response.OK(c, gin.H{"message": fmt.Sprintf("%s uploaded and indexed successfully", file.Filename)})
}
