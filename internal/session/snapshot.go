package session

import (
	"time"

	"github.com/stemsi/examrunner/internal/model"
)

// Analysis is the answer-status breakdown shown in the sidebar and on the
// completion screen. Answered+Unanswered always equals the question count.
type Analysis struct {
	Answered        int `json:"answered"`
	Unanswered      int `json:"unanswered"`
	MarkedForReview int `json:"marked_for_review"`
	Unvisited       int `json:"unvisited"`
}

// QuestionState is one entry of the navigation sidebar.
type QuestionState struct {
	Index  int            `json:"index"`
	Status QuestionStatus `json:"status"`
	Marked bool           `json:"marked"`
}

// Snapshot is everything the view layer polls on each tick.
// Durations are whole seconds; nil means "absent".
type Snapshot struct {
	Phase                  Phase                   `json:"phase"`
	CurrentIndex           int                     `json:"current_index"`
	TotalQuestions         int                     `json:"total_questions"`
	Question               *model.QuestionForTaker `json:"question,omitempty"`
	SelectedOption         *string                 `json:"selected_option,omitempty"`
	Score                  *int                    `json:"score,omitempty"`
	TotalTimeLimitSeconds  int64                   `json:"total_time_limit_seconds"`
	TimeLeftSeconds        *int64                  `json:"time_left_seconds"`
	QuestionElapsedSeconds *int64                  `json:"question_elapsed_seconds"`
	TotalElapsedSeconds    *int64                  `json:"total_elapsed_seconds"`
	Analysis               Analysis                `json:"analysis"`
	Questions              []QuestionState         `json:"questions"`
}

// QuestionOutcome is the per-question breakdown of a completed session.
type QuestionOutcome struct {
	Index            int     `json:"index"`
	Selected         *string `json:"selected,omitempty"`
	Correct          bool    `json:"correct"`
	Marked           bool    `json:"marked"`
	TimeSpentSeconds int64   `json:"time_spent_seconds"`
}

// Result is the final report of a completed session.
type Result struct {
	Score            int               `json:"score"`
	TotalQuestions   int               `json:"total_questions"`
	FullScore        bool              `json:"full_score"`
	TimeTakenSeconds int64             `json:"time_taken_seconds"`
	Analysis         Analysis          `json:"analysis"`
	Outcomes         []QuestionOutcome `json:"outcomes"`
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       time.Time         `json:"finished_at"`
}

// Snapshot captures the current state atomically.
func (s *ExamSession) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	snap := Snapshot{
		Phase:                 s.phase,
		CurrentIndex:          s.current,
		TotalQuestions:        len(s.questions),
		TotalTimeLimitSeconds: int64(s.opts.TotalTimeLimit / time.Second),
		Analysis:              s.analysisLocked(),
		Questions:             make([]QuestionState, len(s.questions)),
	}

	if s.inRangeLocked() {
		q := s.questions[s.current].ForTaker()
		snap.Question = &q
		if selected, ok := s.answers[s.current]; ok {
			snap.SelectedOption = &selected
		}
	}
	if s.phase == PhaseCompleted {
		score := s.score
		snap.Score = &score
	}

	snap.TimeLeftSeconds = seconds(s.timeLeftLocked(now))
	snap.QuestionElapsedSeconds = seconds(s.questionElapsedLocked(now))
	snap.TotalElapsedSeconds = seconds(s.totalElapsedLocked(now))

	for i := range s.questions {
		_, marked := s.marks[i]
		snap.Questions[i] = QuestionState{
			Index:  i,
			Status: s.statusLocked(i),
			Marked: marked,
		}
	}
	return snap
}

// Result returns the final report. ok is false until the session completes.
func (s *ExamSession) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCompleted {
		return Result{}, false
	}
	return s.resultLocked(), true
}

func (s *ExamSession) resultLocked() Result {
	taken, _ := s.totalElapsedLocked(s.sessionEnd)
	res := Result{
		Score:            s.score,
		TotalQuestions:   len(s.questions),
		FullScore:        s.score == len(s.questions),
		TimeTakenSeconds: int64(taken / time.Second),
		Analysis:         s.analysisLocked(),
		Outcomes:         make([]QuestionOutcome, len(s.questions)),
		StartedAt:        s.sessionStart,
		FinishedAt:       s.sessionEnd,
	}
	for i, q := range s.questions {
		_, marked := s.marks[i]
		out := QuestionOutcome{
			Index:            i,
			Marked:           marked,
			TimeSpentSeconds: int64(s.spent[i] / time.Second),
		}
		if selected, ok := s.answers[i]; ok {
			out.Selected = &selected
			out.Correct = selected == q.Answer
		}
		res.Outcomes[i] = out
	}
	return res
}

func seconds(d time.Duration, ok bool) *int64 {
	if !ok {
		return nil
	}
	v := int64(d / time.Second)
	return &v
}
