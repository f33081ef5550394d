package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"slidecoach/internal/pipeline"
	"slidecoach/internal/store"
	"slidecoach/internal/transport/http/response"
)

type ReviewHandler struct {
	orchestrator *pipeline.Orchestrator
}

type StartReviewRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	Mode         string `json:"mode"`
	ExtraInfo    string `json:"extra_info"`
}

type ReviewSlideRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
	Slide        int    `json:"slide" binding:"required,gt=0"`
}

func NewReviewHandler(orchestrator *pipeline.Orchestrator) *ReviewHandler {
	return &ReviewHandler{orchestrator: orchestrator}
}

func (h *ReviewHandler) Transcript(c *gin.Context) {
	token := c.Query("session_token")
	slide, err := strconv.Atoi(c.Query("slide"))
	if err != nil || slide < 1 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid slide index")
		return
	}

	transcript, err := h.orchestrator.GetTranscript(c.Request.Context(), token, slide)
	if err != nil {
		writeReviewError(c, err, "get transcript failed")
		return
	}

	response.OK(c, transcript)
}

func (h *ReviewHandler) StartReview(c *gin.Context) {
	var req StartReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.orchestrator.StartReview(c.Request.Context(), req.SessionToken, req.Mode, req.ExtraInfo); err != nil {
		writeReviewError(c, err, "start review failed")
		return
	}

	response.OK(c, gin.H{"session_token": req.SessionToken})
}

func (h *ReviewHandler) ReviewSlide(c *gin.Context) {
	var req ReviewSlideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	review, err := h.orchestrator.ReviewSlide(c.Request.Context(), req.SessionToken, req.Slide)
	if err != nil {
		writeReviewError(c, err, "review slide failed")
		return
	}

	response.OK(c, review)
}

func (h *ReviewHandler) Summary(c *gin.Context) {
	token := c.Query("session_token")

	summary, err := h.orchestrator.Summarize(c.Request.Context(), token)
	if err != nil {
		writeReviewError(c, err, "summarize session failed")
		return
	}

	response.OK(c, summary)
}

func (h *ReviewHandler) Status(c *gin.Context) {
	token := c.Query("session_token")

	status, err := h.orchestrator.Status(c.Request.Context(), token)
	if err != nil {
		writeReviewError(c, err, "session status failed")
		return
	}

	response.OK(c, status)
}

func writeReviewError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, pipeline.ErrAudioNotFound):
		response.Error(c, http.StatusNotFound, response.CodeAudioNotFound, err.Error())
	case errors.Is(err, pipeline.ErrCollaborator):
		response.Error(c, http.StatusBadGateway, response.CodeCollaborator, err.Error())
	case errors.Is(err, store.ErrStorage):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
