package session

import "time"

// Phase returns the current phase.
func (s *ExamSession) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentIndex returns the index of the question on screen.
func (s *ExamSession) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Len returns the number of questions.
func (s *ExamSession) Len() int {
	return len(s.questions)
}

// Score returns the running score.
func (s *ExamSession) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// IsFullScore reports whether every question was scored. Only meaningful
// once the session is completed.
func (s *ExamSession) IsFullScore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score == len(s.questions)
}

// TimeLeft returns the remaining time budget in whole seconds, clamped at
// zero. ok is false unless the session is in progress.
func (s *ExamSession) TimeLeft() (left time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeftLocked(s.clock.Now())
}

// QuestionElapsed returns the whole seconds spent on the current question.
// After completion the value is frozen at the completion time.
func (s *ExamSession) QuestionElapsed() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionElapsedLocked(s.clock.Now())
}

// TotalElapsed returns the whole seconds since Start, or the final duration
// once the session has ended. ok is false before Start.
func (s *ExamSession) TotalElapsed() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalElapsedLocked(s.clock.Now())
}

// CompletedAt returns the completion time, if any.
func (s *ExamSession) CompletedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseCompleted {
		return time.Time{}, false
	}
	return s.sessionEnd, true
}

// QuestionStatus reports whether an answer is recorded for index.
func (s *ExamSession) QuestionStatus(index int) QuestionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(index)
}

// Marked reports whether index is flagged for review.
func (s *ExamSession) Marked(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marks[index]
	return ok
}

// Analysis recomputes the answer-status breakdown from the current state.
func (s *ExamSession) Analysis() Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysisLocked()
}

func (s *ExamSession) timeLeftLocked(now time.Time) (time.Duration, bool) {
	if s.phase != PhaseInProgress {
		return 0, false
	}
	left := s.opts.TotalTimeLimit - elapsedSeconds(s.sessionStart, now)
	if left < 0 {
		left = 0
	}
	return left, true
}

func (s *ExamSession) questionElapsedLocked(now time.Time) (time.Duration, bool) {
	if s.questionStart.IsZero() {
		return 0, false
	}
	if !s.sessionEnd.IsZero() {
		now = s.sessionEnd
	}
	return elapsedSeconds(s.questionStart, now), true
}

func (s *ExamSession) totalElapsedLocked(now time.Time) (time.Duration, bool) {
	if s.sessionStart.IsZero() {
		return 0, false
	}
	if !s.sessionEnd.IsZero() {
		return elapsedSeconds(s.sessionStart, s.sessionEnd), true
	}
	return elapsedSeconds(s.sessionStart, now), true
}

func (s *ExamSession) statusLocked(index int) QuestionStatus {
	if _, ok := s.answers[index]; ok {
		return StatusAnswered
	}
	return StatusUnanswered
}

func (s *ExamSession) analysisLocked() Analysis {
	var a Analysis
	for i := range s.questions {
		_, answered := s.answers[i]
		_, touched := s.touched[i]
		_, marked := s.marks[i]
		if answered {
			a.Answered++
		} else {
			a.Unanswered++
			if !touched && !marked {
				a.Unvisited++
			}
		}
	}
	a.MarkedForReview = len(s.marks)
	return a
}
