package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/examrunner/internal/middleware"
	"github.com/stemsi/examrunner/internal/model"
	"github.com/stemsi/examrunner/internal/questionbank"
	"github.com/stemsi/examrunner/internal/response"
	"github.com/stemsi/examrunner/internal/service"
	"github.com/stemsi/examrunner/internal/session"
	"github.com/stemsi/examrunner/internal/validator"
)

// SessionHandler exposes the exam session operations over REST.
type SessionHandler struct {
	examService *service.ExamService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(examService *service.ExamService) *SessionHandler {
	return &SessionHandler{examService: examService}
}

// CreateSession godoc
// POST /api/v1/sessions
// Loads a question set and registers a not yet started session.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	info, sess, err := h.examService.CreateSession(c.Request.Context(), req.QuestionSet)
	if err != nil {
		switch {
		case errors.Is(err, questionbank.ErrSetNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrQuestionSetNotFound)
		case errors.Is(err, questionbank.ErrInvalidSet):
			var invalid *questionbank.InvalidSetError
			if errors.As(err, &invalid) && len(invalid.Fields) > 0 {
				response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrInvalidQuestionSet, invalid.Fields)
				return
			}
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidQuestionSet)
		default:
			c.Error(err)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session": info,
		"state":   sess.Snapshot(),
	})
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Returns the registry info and the current snapshot.
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess := middleware.GetSession(c)
	info, _ := middleware.GetSessionInfo(c)

	response.Success(c, http.StatusOK, gin.H{
		"session": info,
		"state":   sess.Snapshot(),
	})
}

// Start godoc
// POST /api/v1/sessions/:session_id/start
func (h *SessionHandler) Start(c *gin.Context) {
	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.Start())
}

// SelectOption godoc
// POST /api/v1/sessions/:session_id/answer
func (h *SessionHandler) SelectOption(c *gin.Context) {
	var req model.SelectOptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.SelectOption(req.Option))
}

// ClearResponse godoc
// DELETE /api/v1/sessions/:session_id/answer
func (h *SessionHandler) ClearResponse(c *gin.Context) {
	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.ClearResponse())
}

// Next godoc
// POST /api/v1/sessions/:session_id/next
// Scores the current question and advances; on the last question it completes.
func (h *SessionHandler) Next(c *gin.Context) {
	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.Next())
}

// Previous godoc
// POST /api/v1/sessions/:session_id/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.Previous())
}

// MarkForReview godoc
// POST /api/v1/sessions/:session_id/mark
func (h *SessionHandler) MarkForReview(c *gin.Context) {
	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.MarkForReviewAndNext())
}

// JumpTo godoc
// POST /api/v1/sessions/:session_id/jump
func (h *SessionHandler) JumpTo(c *gin.Context) {
	var req model.JumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.JumpTo(*req.Index))
}

// Finish godoc
// POST /api/v1/sessions/:session_id/finish
func (h *SessionHandler) Finish(c *gin.Context) {
	sess := middleware.GetSession(c)
	respondTransition(c, sess, sess.Finish())
}

// GetResult godoc
// GET /api/v1/sessions/:session_id/result
// Returns 409 until the session has completed.
func (h *SessionHandler) GetResult(c *gin.Context) {
	sess := middleware.GetSession(c)

	res, ok := sess.Result()
	if !ok {
		response.FailWithData(c, http.StatusConflict, response.ErrResultNotReady, sess.Snapshot())
		return
	}
	response.Success(c, http.StatusOK, res)
}

// respondTransition answers with the new snapshot, or 409 with the
// unchanged one when the session ignored the call.
func respondTransition(c *gin.Context, sess *session.ExamSession, applied bool) {
	snap := sess.Snapshot()
	if !applied {
		response.FailWithData(c, http.StatusConflict, response.ErrActionForbidden, snap)
		return
	}
	response.Success(c, http.StatusOK, snap)
}
