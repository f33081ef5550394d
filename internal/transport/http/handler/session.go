package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appsvc "slidecoach/internal/app"
	"slidecoach/internal/pipeline"
	"slidecoach/internal/store"
	"slidecoach/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *appsvc.SessionService
}

func NewSessionHandler(sessions *appsvc.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Upload ingests a slide deck and creates a review session.
func (h *SessionHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "deck file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded deck failed")
		return
	}
	defer file.Close()

	deck, err := h.sessions.UploadDeck(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		writeSessionError(c, err, "upload deck failed")
		return
	}

	response.OK(c, deck)
}

func (h *SessionHandler) Sessions(c *gin.Context) {
	sessions, err := h.sessions.Sessions()
	if err != nil {
		writeSessionError(c, err, "list sessions failed")
		return
	}

	response.OK(c, sessions)
}

func (h *SessionHandler) Slides(c *gin.Context) {
	token := c.Param("sessionId")

	deck, err := h.sessions.ListSlides(token)
	if err != nil {
		writeSessionError(c, err, "list slides failed")
		return
	}

	response.OK(c, deck)
}

// Audio stores a narration recording for one slide and queues transcription.
func (h *SessionHandler) Audio(c *gin.Context) {
	token := c.PostForm("session_token")
	slide, err := strconv.Atoi(c.PostForm("slide"))
	if err != nil || slide < 1 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid slide index")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "audio file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "open uploaded audio failed")
		return
	}
	defer file.Close()

	if err := h.sessions.SaveAudio(c.Request.Context(), token, slide, fileHeader.Filename, file); err != nil {
		writeSessionError(c, err, "save audio failed")
		return
	}

	response.OK(c, gin.H{"session_token": token, "slide": slide})
}

func writeSessionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, appsvc.ErrJobEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, err.Error())
	case errors.Is(err, store.ErrStorage):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
