package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/examrunner/internal/response"
	"github.com/stemsi/examrunner/internal/service"
	"github.com/stemsi/examrunner/internal/session"
)

const (
	// ContextKeySession is the Gin context key for the resolved exam session.
	ContextKeySession = "exam_session"
	// ContextKeySessionInfo is the Gin context key for the session's registry info.
	ContextKeySessionInfo = "exam_session_info"
)

// SessionLookup resolves :session_id into a registered exam session.
type SessionLookup interface {
	Get(id uuid.UUID) (service.SessionInfo, *session.ExamSession, error)
}

// LoadSession aborts with 400 on a malformed :session_id and 404 when no
// session is registered under it.
func LoadSession(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("session_id"))
		if err != nil {
			response.AbortFail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}

		info, sess, err := sessions.Get(id)
		if err != nil {
			if errors.Is(err, service.ErrSessionNotFound) {
				response.AbortFail(c, http.StatusNotFound, response.ErrSessionNotFound)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Set(ContextKeySession, sess)
		c.Set(ContextKeySessionInfo, info)
		c.Next()
	}
}

// GetSession extracts the exam session from the Gin context.
func GetSession(c *gin.Context) *session.ExamSession {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	sess, ok := val.(*session.ExamSession)
	if !ok {
		return nil
	}
	return sess
}

// GetSessionInfo extracts the session's registry info from the Gin context.
func GetSessionInfo(c *gin.Context) (service.SessionInfo, bool) {
	val, exists := c.Get(ContextKeySessionInfo)
	if !exists {
		return service.SessionInfo{}, false
	}
	info, ok := val.(service.SessionInfo)
	return info, ok
}
