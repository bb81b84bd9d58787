package session

import (
	"sync"
	"time"

	"github.com/stemsi/examrunner/internal/clock"
	"github.com/stemsi/examrunner/internal/model"
)

// ExamSession owns the state of one timed exam attempt.
//
// Every mutating call, the deadline and the periodic tick run under a single
// mutex, so only one event handler touches the state at a time. Calls made
// outside their precondition are ignored and report false.
type ExamSession struct {
	mu    sync.Mutex
	clock clock.Clock
	opts  Options

	questions []model.Question

	phase   Phase
	current int
	answers map[int]string
	touched map[int]struct{}
	marks   map[int]struct{}
	scored  map[int]bool
	score   int
	spent   []time.Duration

	sessionStart  time.Time
	sessionEnd    time.Time
	questionStart time.Time

	deadline    *clock.Timer
	deadlineGen uint64
	ticker      *clock.Timer
	tickGen     uint64

	notified bool
}

// New creates a session over a copy of the set's questions.
// A set with no questions yields a session that is already completed.
func New(set *model.QuestionSet, clk clock.Clock, opts Options) *ExamSession {
	if clk == nil {
		clk = clock.Real()
	}

	var questions []model.Question
	if set != nil {
		questions = make([]model.Question, len(set.Questions))
		copy(questions, set.Questions)
	}

	s := &ExamSession{
		clock:     clk,
		opts:      opts.withDefaults(),
		questions: questions,
		phase:     PhaseNotStarted,
		answers:   make(map[int]string),
		touched:   make(map[int]struct{}),
		marks:     make(map[int]struct{}),
		scored:    make(map[int]bool),
		spent:     make([]time.Duration, len(questions)),
	}

	if len(questions) == 0 {
		now := clk.Now()
		s.phase = PhaseCompleted
		s.sessionStart = now
		s.sessionEnd = now
		s.notified = true
	}

	return s
}

// Start begins the exam, arming the deadline and the periodic tick.
func (s *ExamSession) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseNotStarted {
		return false
	}

	now := s.clock.Now()
	s.phase = PhaseInProgress
	s.sessionStart = now
	s.questionStart = now
	s.armDeadlineLocked(now)
	s.armTickLocked(now)
	return true
}

// SelectOption records option as the answer to the current question,
// replacing any earlier selection. Scoring happens on navigation.
func (s *ExamSession) SelectOption(option string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRangeLocked() || option == "" {
		return false
	}
	if !s.questions[s.current].HasOption(option) {
		return false
	}
	s.answers[s.current] = option
	s.touched[s.current] = struct{}{}
	return true
}

// ClearResponse removes the answer to the current question. Review marks stay,
// and the question no longer counts as unvisited.
func (s *ExamSession) ClearResponse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRangeLocked() {
		return false
	}
	delete(s.answers, s.current)
	s.touched[s.current] = struct{}{}
	return true
}

// Next scores the current question and advances. Advancing past the last
// question completes the session.
func (s *ExamSession) Next() bool {
	return s.advance(false)
}

// MarkForReviewAndNext flags the current question for review, then behaves
// exactly like Next.
func (s *ExamSession) MarkForReviewAndNext() bool {
	return s.advance(true)
}

// Previous moves back one question without scoring.
func (s *ExamSession) Previous() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRangeLocked() || s.current == 0 {
		return false
	}
	s.moveLocked(s.current - 1)
	return true
}

// JumpTo moves directly to the question at index without scoring.
func (s *ExamSession) JumpTo(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inRangeLocked() || index < 0 || index >= len(s.questions) {
		return false
	}
	s.moveLocked(index)
	return true
}

// Finish completes the session. Calling it again, or before Start, is a no-op.
func (s *ExamSession) Finish() bool {
	s.mu.Lock()
	if s.phase != PhaseInProgress {
		s.mu.Unlock()
		return false
	}
	s.completeLocked(s.clock.Now())
	res, notify := s.takeCompletionLocked()
	s.mu.Unlock()

	s.notify(res, notify)
	return true
}

// Tick is the periodic observational event. It never touches answers, marks
// or score; it only completes the session once the time limit is reached.
// It reports whether this call completed the session.
func (s *ExamSession) Tick() bool {
	s.mu.Lock()
	completed := s.tickLocked(s.clock.Now())
	res, notify := s.takeCompletionLocked()
	s.mu.Unlock()

	s.notify(res, notify)
	return completed
}

func (s *ExamSession) advance(mark bool) bool {
	s.mu.Lock()
	if !s.inRangeLocked() {
		s.mu.Unlock()
		return false
	}

	if mark {
		s.marks[s.current] = struct{}{}
	}
	s.scoreCurrentLocked()

	if s.current+1 >= len(s.questions) {
		s.completeLocked(s.clock.Now())
	} else {
		s.moveLocked(s.current + 1)
	}

	res, notify := s.takeCompletionLocked()
	s.mu.Unlock()

	s.notify(res, notify)
	return true
}

func (s *ExamSession) scoreCurrentLocked() {
	selected, ok := s.answers[s.current]
	if !ok || selected != s.questions[s.current].Answer {
		return
	}
	if s.opts.ScoringPolicy == ScoreOnce && s.scored[s.current] {
		return
	}
	s.scored[s.current] = true
	s.score++
}

// moveLocked books the time spent on the departing question, changes the
// current index, re-arms the full deadline and restarts the question clock.
func (s *ExamSession) moveLocked(index int) {
	now := s.clock.Now()
	s.bookQuestionTimeLocked(now)
	s.current = index
	s.armDeadlineLocked(now)
	s.questionStart = now
}

func (s *ExamSession) bookQuestionTimeLocked(now time.Time) {
	if s.questionStart.IsZero() || s.current < 0 || s.current >= len(s.spent) {
		return
	}
	if d := now.Sub(s.questionStart); d > 0 {
		s.spent[s.current] += d
	}
}

func (s *ExamSession) completeLocked(now time.Time) {
	if s.phase == PhaseCompleted {
		return
	}
	s.bookQuestionTimeLocked(now)
	s.phase = PhaseCompleted
	if s.sessionEnd.IsZero() {
		s.sessionEnd = now
	}
	s.disarmLocked()
}

func (s *ExamSession) tickLocked(now time.Time) bool {
	if s.phase != PhaseInProgress {
		return false
	}
	if elapsedSeconds(s.sessionStart, now) < s.opts.TotalTimeLimit {
		return false
	}
	s.completeLocked(now)
	return true
}

// armDeadlineLocked replaces any pending deadline with a fresh one for the
// full time limit from now. The generation check drops callbacks from
// replaced timers that fired before Stop could cancel them.
func (s *ExamSession) armDeadlineLocked(now time.Time) {
	if s.deadline != nil {
		s.deadline.Stop()
	}
	s.deadlineGen++
	gen := s.deadlineGen
	due := now.Add(s.opts.TotalTimeLimit)
	s.deadline = s.clock.AfterFunc(s.opts.TotalTimeLimit, func() {
		s.onDeadline(gen, due)
	})
}

// onDeadline completes the session at the scheduled deadline, not at the
// moment the callback gets to run.
func (s *ExamSession) onDeadline(gen uint64, due time.Time) {
	s.mu.Lock()
	if gen != s.deadlineGen || s.phase != PhaseInProgress {
		s.mu.Unlock()
		return
	}
	s.deadline = nil
	s.completeLocked(due)
	res, notify := s.takeCompletionLocked()
	s.mu.Unlock()

	s.notify(res, notify)
}

// armTickLocked schedules the next tick one interval after prev. Ticks keep
// their cadence even when a callback runs late.
func (s *ExamSession) armTickLocked(prev time.Time) {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.tickGen++
	gen := s.tickGen
	at := prev.Add(s.opts.TickInterval)
	s.ticker = s.clock.AfterFunc(at.Sub(s.clock.Now()), func() {
		s.onTick(gen, at)
	})
}

func (s *ExamSession) onTick(gen uint64, at time.Time) {
	s.mu.Lock()
	if gen != s.tickGen || s.phase != PhaseInProgress {
		s.mu.Unlock()
		return
	}
	s.ticker = nil
	if !s.tickLocked(at) {
		s.armTickLocked(at)
	}
	res, notify := s.takeCompletionLocked()
	s.mu.Unlock()

	s.notify(res, notify)
}

func (s *ExamSession) disarmLocked() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
	s.deadlineGen++
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.tickGen++
}

func (s *ExamSession) takeCompletionLocked() (Result, bool) {
	if s.phase != PhaseCompleted || s.notified {
		return Result{}, false
	}
	s.notified = true
	return s.resultLocked(), true
}

func (s *ExamSession) notify(res Result, ok bool) {
	if ok && s.opts.OnComplete != nil {
		s.opts.OnComplete(res)
	}
}

func (s *ExamSession) inRangeLocked() bool {
	return s.phase == PhaseInProgress && s.current >= 0 && s.current < len(s.questions)
}

// elapsedSeconds returns whole seconds between from and to.
func elapsedSeconds(from, to time.Time) time.Duration {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}
