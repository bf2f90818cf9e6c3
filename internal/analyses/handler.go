package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/session"
	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc     *Service
	DocRepo documents.DocumentsRepo
	Current *session.Holder[CurrentResult]
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, docRepo documents.DocumentsRepo, current *session.Holder[CurrentResult]) *Handler {
	return &Handler{Svc: svc, DocRepo: docRepo, Current: current}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/analyze", h.startAnalysis)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/current", h.currentResult)
	rg.GET("/analyses/:id", h.getAnalysis)
}

func (h *Handler) startAnalysis(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	documentID := c.Param("id")
	if documentID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id is required", nil)
		return
	}

	doc, err := h.DocRepo.GetByID(c.Request.Context(), sessionID, documentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	analysis, err := h.Svc.Create(ctx, doc.ID, sessionID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	analysis, err := h.Svc.Get(c.Request.Context(), analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}
	if analysis.SessionID != middleware.SessionIDFromContext(c) {
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		return
	}

	resp := gin.H{
		"id":     analysis.ID,
		"status": analysis.Status,
	}
	switch analysis.Status {
	case StatusCompleted:
		resp["result"] = analysis.Result
		resp["processMapLayout"] = analysis.ProcessMap
	case StatusFailed:
		resp["failedStage"] = analysis.FailedStage
		resp["errorCode"] = analysis.ErrorCode
		resp["message"] = userMessageForCode(analysis.ErrorCode)
		resp["detail"] = analysis.ErrorMessage
		resp["retryable"] = analysis.Retryable
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) currentResult(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	if h.Current == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "no current analysis", nil)
		return
	}
	current, ok := h.Current.Get(sessionID)
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "no current analysis", nil)
		return
	}
	respond.JSON(c, http.StatusOK, current)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	analyses, err := h.Svc.List(c.Request.Context(), sessionID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(analyses))
	for _, a := range analyses {
		item := gin.H{
			"analysisId": a.ID,
			"documentId": a.DocumentID,
			"status":     a.Status,
			"createdAt":  a.CreatedAt,
		}
		if a.Status == StatusCompleted && a.Result != nil {
			item["targetAction"] = a.Result.TargetAction
			item["stepCount"] = len(a.Result.ProcessMap)
		}
		if a.Status == StatusFailed {
			item["errorCode"] = a.ErrorCode
		}
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}
