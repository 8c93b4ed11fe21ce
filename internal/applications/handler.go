package applications

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"jobapply-backend/internal/scrape"
	"jobapply-backend/internal/sessions"
	"jobapply-backend/internal/shared/apperr"
	"jobapply-backend/internal/shared/storage/object"
	"jobapply-backend/internal/shared/server/middleware"
	"jobapply-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches session routes to the router group. Generation
// routes get the extra middleware (rate limiting).
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, generation ...gin.HandlerFunc) {
	rg.POST("/sessions", h.create)

	s := rg.Group("/sessions/:id", middleware.Session())
	s.GET("", h.get)
	s.POST("/resume", h.uploadResume)
	s.POST("/resume/presign", h.presignResume)
	s.POST("/resume/from-s3", h.attachUploadedResume)
	s.PUT("/job-description", h.setJobDescription)
	s.PUT("/recipient", h.setRecipient)
	s.GET("/history", h.history)

	g := s.Group("", generation...)
	g.POST("/analyze", h.run(ActionAnalyze))
	g.POST("/draft", h.run(ActionDraft))
	g.POST("/send", h.run(ActionSend))
}

func (h *Handler) create(c *gin.Context) {
	ac, err := h.Svc.CreateSession(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("sessionId", ac.ID)
	respond.Created(c, toSessionResponse(ac))
}

func (h *Handler) get(c *gin.Context) {
	ac, err := h.Svc.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(ac))
}

func (h *Handler) uploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxResumeBytes+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	ac, err := h.Svc.UploadResume(c.Request.Context(), c.Param("id"), fileHeader.Filename, file)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(ac))
}

func (h *Handler) presignResume(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	up, err := h.Svc.PresignResumeUpload(c.Request.Context(), c.Param("id"), req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, up)
}

func (h *Handler) attachUploadedResume(c *gin.Context) {
	var req attachUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "key is required", nil)
		return
	}

	ac, err := h.Svc.AttachUploadedResume(c.Request.Context(), c.Param("id"), req.Key)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(ac))
}

func (h *Handler) setJobDescription(c *gin.Context) {
	var req jobDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ac, err := h.Svc.SetJobDescription(c.Request.Context(), c.Param("id"), req.Text, req.URL)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(ac))
}

func (h *Handler) setRecipient(c *gin.Context) {
	var req recipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ac, err := h.Svc.SetRecipient(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toSessionResponse(ac))
}

func (h *Handler) run(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("action", string(action))
		res, err := h.Svc.Run(c.Request.Context(), c.Param("id"), action)
		if err != nil {
			h.fail(c, err)
			return
		}
		respond.JSON(c, http.StatusOK, toRunResponse(res))
	}
}

func (h *Handler) history(c *gin.Context) {
	entries, err := h.Svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"entries": entries})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "session_not_found", "session not found", nil)
	case errors.Is(err, apperr.ErrMissingInput):
		respond.Error(c, http.StatusBadRequest, "missing_input", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrDirectUploadUnavailable):
		respond.Error(c, http.StatusNotImplemented, "direct_upload_unavailable", "object store does not support direct uploads", nil)
	case errors.Is(err, object.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "upload_not_found", "uploaded object not found", nil)
	case errors.Is(err, scrape.ErrNotJobPosting):
		respond.Error(c, http.StatusUnprocessableEntity, "not_job_posting", err.Error(), nil)
	case errors.Is(err, scrape.ErrFetch):
		respond.Error(c, http.StatusBadGateway, "fetch_failed", err.Error(), nil)
	case errors.Is(err, apperr.ErrAttachmentNotFound):
		respond.Error(c, http.StatusConflict, "attachment_not_found", "upload a resume before sending", nil)
	case errors.Is(err, apperr.ErrNotConnected):
		respond.Error(c, http.StatusConflict, "not_connected", "connect Gmail before drafting or sending",
			gin.H{"connectUrl": "/api/v1/auth/google/start?session=" + url.QueryEscape(c.Param("id"))})
	case errors.Is(err, apperr.ErrDispatch):
		respond.Error(c, http.StatusBadGateway, "dispatch_failed", err.Error(), nil)
	case errors.Is(err, apperr.ErrGeneration):
		respond.Error(c, http.StatusBadGateway, "generation_failed", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}
