package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/examrunner/internal/clock"
	"github.com/stemsi/examrunner/internal/questionbank"
	"github.com/stemsi/examrunner/internal/session"
)

var ErrSessionNotFound = errors.New("exam session not found")

// ExamConfig carries the session settings applied to every new session.
type ExamConfig struct {
	TotalTimeLimit time.Duration
	TickInterval   time.Duration
	ScoringPolicy  session.ScoringPolicy
	DefaultSetID   string
}

// SessionInfo describes a registered session.
type SessionInfo struct {
	ID            uuid.UUID `json:"id"`
	QuestionSetID string    `json:"question_set_id"`
	Title         string    `json:"title"`
	CreatedAt     time.Time `json:"created_at"`
}

type entry struct {
	info    SessionInfo
	session *session.ExamSession
}

// ExamService owns the in-memory registry of exam sessions.
type ExamService struct {
	source questionbank.Source
	clock  clock.Clock
	cfg    ExamConfig
	log    zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

// NewExamService creates a new ExamService.
func NewExamService(source questionbank.Source, clk clock.Clock, cfg ExamConfig, log zerolog.Logger) *ExamService {
	if clk == nil {
		clk = clock.Real()
	}
	return &ExamService{
		source:   source,
		clock:    clk,
		cfg:      cfg,
		log:      log.With().Str("component", "exam_service").Logger(),
		sessions: make(map[uuid.UUID]*entry),
	}
}

// CreateSession loads a question set and registers a new, not yet started
// session for it. An empty setID selects the configured default set.
func (s *ExamService) CreateSession(ctx context.Context, setID string) (SessionInfo, *session.ExamSession, error) {
	if setID == "" {
		setID = s.cfg.DefaultSetID
	}

	set, err := s.source.Load(ctx, setID)
	if err != nil {
		return SessionInfo{}, nil, fmt.Errorf("load question set %s: %w", setID, err)
	}

	info := SessionInfo{
		ID:            uuid.New(),
		QuestionSetID: set.ID,
		Title:         set.Title,
		CreatedAt:     s.clock.Now(),
	}

	sessLog := s.log.With().
		Str("session_id", info.ID.String()).
		Str("set_id", set.ID).
		Logger()

	sess := session.New(set, s.clock, session.Options{
		TotalTimeLimit: s.cfg.TotalTimeLimit,
		TickInterval:   s.cfg.TickInterval,
		ScoringPolicy:  s.cfg.ScoringPolicy,
		OnComplete: func(res session.Result) {
			sessLog.Info().
				Int("score", res.Score).
				Int("total", res.TotalQuestions).
				Bool("full_score", res.FullScore).
				Int64("time_taken_s", res.TimeTakenSeconds).
				Int("unanswered", res.Analysis.Unanswered).
				Msg("Exam session completed")
		},
	})

	s.mu.Lock()
	s.sessions[info.ID] = &entry{info: info, session: sess}
	s.mu.Unlock()

	sessLog.Info().Int("questions", set.Len()).Msg("Exam session created")
	return info, sess, nil
}

// Get returns a registered session.
func (s *ExamService) Get(id uuid.UUID) (SessionInfo, *session.ExamSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return SessionInfo{}, nil, ErrSessionNotFound
	}
	return e.info, e.session, nil
}

// StartSession starts a registered session. The bool reports whether the
// session moved to IN_PROGRESS.
func (s *ExamService) StartSession(id uuid.UUID) (*session.ExamSession, bool, error) {
	_, sess, err := s.Get(id)
	if err != nil {
		return nil, false, err
	}
	return sess, sess.Start(), nil
}

// Remove finishes and unregisters a session.
func (s *ExamService) Remove(id uuid.UUID) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.session.Finish()
	return nil
}

// Count returns the number of registered sessions.
func (s *ExamService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictCompleted drops sessions that completed more than retention ago.
// Sessions that never started are evicted once they are older than retention.
func (s *ExamService) EvictCompleted(retention time.Duration) int {
	cutoff := s.clock.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.sessions {
		if !s.expired(e, cutoff) {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

func (s *ExamService) expired(e *entry, cutoff time.Time) bool {
	switch e.session.Phase() {
	case session.PhaseCompleted:
		end, _ := e.session.CompletedAt()
		return end.Before(cutoff)
	case session.PhaseNotStarted:
		return e.info.CreatedAt.Before(cutoff)
	default:
		return false
	}
}

// FinishAll completes every in-progress session and returns how many it
// finished. Used during shutdown.
func (s *ExamService) FinishAll() int {
	s.mu.RLock()
	sessions := make([]*session.ExamSession, 0, len(s.sessions))
	for _, e := range s.sessions {
		sessions = append(sessions, e.session)
	}
	s.mu.RUnlock()

	finished := 0
	for _, sess := range sessions {
		if sess.Finish() {
			finished++
		}
	}
	return finished
}
