package session

import (
	"fmt"
	"strings"
	"time"
)

// Phase enumerates exam session states.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseCompleted  Phase = "COMPLETED"
)

// QuestionStatus is the answer status of a single question.
type QuestionStatus string

const (
	StatusAnswered   QuestionStatus = "answered"
	StatusUnanswered QuestionStatus = "unanswered"
)

// ScoringPolicy controls how often a correct answer is counted when the
// test-taker advances past the same question more than once.
type ScoringPolicy string

const (
	// ScoreOnce counts each question at most once.
	ScoreOnce ScoringPolicy = "once"
	// ScoreEveryAdvance counts a correct answer on every advance, so revisiting
	// and advancing again adds to the score a second time.
	ScoreEveryAdvance ScoringPolicy = "every_advance"
)

// ParseScoringPolicy maps a config string to a ScoringPolicy.
func ParseScoringPolicy(raw string) (ScoringPolicy, error) {
	switch ScoringPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScoreOnce:
		return ScoreOnce, nil
	case ScoreEveryAdvance:
		return ScoreEveryAdvance, nil
	default:
		return "", fmt.Errorf("unknown scoring policy %q", raw)
	}
}

const (
	DefaultTotalTimeLimit = 500 * time.Second
	DefaultTickInterval   = time.Second
)

// Options configures an ExamSession.
type Options struct {
	// TotalTimeLimit bounds the session and is the duration used for every
	// deadline re-arm.
	TotalTimeLimit time.Duration
	TickInterval   time.Duration
	ScoringPolicy  ScoringPolicy
	// OnComplete is called once when the session completes, outside the
	// session lock. It is not called for sessions created with no questions.
	OnComplete func(Result)
}

func (o Options) withDefaults() Options {
	if o.TotalTimeLimit <= 0 {
		o.TotalTimeLimit = DefaultTotalTimeLimit
	}
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.ScoringPolicy == "" {
		o.ScoringPolicy = ScoreOnce
	}
	return o
}
