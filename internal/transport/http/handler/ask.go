package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-assistant/internal/access"
	"knowledge-assistant/internal/app"
	"knowledge-assistant/internal/model"
	"knowledge-assistant/internal/transport/http/response"
)

type Asker interface {
	Ask(ctx context.Context, q app.Query) (*model.AnswerEnvelope, error)
}

type DocumentLister interface {
	Documents(role string) []model.DocumentSummary
}

type AskHandler struct {
	asker        Asker
	documents    DocumentLister
	strictErrors bool
}

type AskRequest struct {
	Question string `json:"question"`
	Role     string `json:"role"`
}

func NewAskHandler(asker Asker, documents DocumentLister, strictErrors bool) *AskHandler {
	return &AskHandler{asker: asker, documents: documents, strictErrors: strictErrors}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	env, err := h.asker.Ask(c.Request.Context(), app.Query{Question: req.Question, Role: req.Role})
	if err != nil {
		if app.IsClientError(err) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, app.ClientError(err, h.strictErrors))
		return
	}
	response.OK(c, env)
}

// Documents lists the departments and sources the role in ?role= may see.
func (h *AskHandler) Documents(c *gin.Context) {
	role := c.Query("role")
	response.OK(c, gin.H{
		"role":        role,
		"departments": access.VisibleDepartments(role),
		"documents":   h.documents.Documents(role),
	})
}
