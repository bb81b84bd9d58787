package session_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stemsi/examrunner/internal/clock"
	"github.com/stemsi/examrunner/internal/model"
	"github.com/stemsi/examrunner/internal/session"
)

var epoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// newSet builds n questions whose correct answer is always "A".
func newSet(n int) *model.QuestionSet {
	set := &model.QuestionSet{ID: "test", Title: "Test"}
	for i := 0; i < n; i++ {
		set.Questions = append(set.Questions, model.Question{
			Prompt:  fmt.Sprintf("Question %d", i+1),
			Options: []string{"A", "B", "C", "D"},
			Answer:  "A",
		})
	}
	set.Reindex()
	return set
}

func newSession(t *testing.T, n int, opts session.Options) (*session.ExamSession, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock(epoch)
	return session.New(newSet(n), clk, opts), clk
}

// waitPhase lets timer callbacks fired by the mock land before asserting.
func waitPhase(t *testing.T, s *session.ExamSession, clk *clock.Mock, want session.Phase) {
	t.Helper()
	if !clock.Settle(clk, 2*time.Second, func() bool { return s.Phase() == want }) {
		t.Fatalf("expected %s, got %s", want, s.Phase())
	}
}

func TestStart_TransitionsToInProgress(t *testing.T) {
	s, _ := newSession(t, 3, session.Options{})

	if s.Phase() != session.PhaseNotStarted {
		t.Fatalf("expected NOT_STARTED, got %s", s.Phase())
	}
	if _, ok := s.TimeLeft(); ok {
		t.Error("time left should be absent before start")
	}
	if _, ok := s.TotalElapsed(); ok {
		t.Error("total elapsed should be absent before start")
	}

	if !s.Start() {
		t.Fatal("expected Start to apply")
	}
	if s.Start() {
		t.Error("second Start should be ignored")
	}
	if s.Phase() != session.PhaseInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", s.Phase())
	}
	if left, ok := s.TimeLeft(); !ok || left != 500*time.Second {
		t.Errorf("expected 500s left, got %v (ok=%v)", left, ok)
	}
}

func TestNext_CompletesAfterLastQuestion(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			s, clk := newSession(t, n, session.Options{})
			s.Start()

			for i := 0; i < n; i++ {
				if s.Phase() != session.PhaseInProgress {
					t.Fatalf("completed early at step %d", i)
				}
				clk.Add(time.Second)
				s.Next()
			}

			if s.Phase() != session.PhaseCompleted {
				t.Fatalf("expected COMPLETED, got %s", s.Phase())
			}
			end, ok := s.CompletedAt()
			if !ok || !end.Equal(epoch.Add(time.Duration(n)*time.Second)) {
				t.Errorf("unexpected completion time %v", end)
			}
			if idx := s.CurrentIndex(); idx != n-1 {
				t.Errorf("current index should stay in range, got %d", idx)
			}
			if s.Next() {
				t.Error("Next after completion should be ignored")
			}
		})
	}
}

func TestScenario_TwoCorrectAnswersIsFullScore(t *testing.T) {
	s, _ := newSession(t, 2, session.Options{})
	s.Start()

	s.SelectOption("A")
	s.Next()
	s.SelectOption("A")
	s.Next()

	if s.Score() != 2 {
		t.Errorf("expected score 2, got %d", s.Score())
	}
	if s.Phase() != session.PhaseCompleted {
		t.Errorf("expected COMPLETED, got %s", s.Phase())
	}
	if !s.IsFullScore() {
		t.Error("expected full score")
	}
}

func TestScoring_RevisitPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy session.ScoringPolicy
		want   int
	}{
		{name: "once ignores revisit", policy: session.ScoreOnce, want: 1},
		{name: "every advance double counts", policy: session.ScoreEveryAdvance, want: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newSession(t, 3, session.Options{ScoringPolicy: tc.policy})
			s.Start()

			s.SelectOption("A")
			s.Next()     // scores question 0
			s.Previous() // back to question 0
			s.Next()     // advances past question 0 again
			s.Next()     // question 1 unanswered
			s.Next()     // question 2 unanswered, completes

			if s.Phase() != session.PhaseCompleted {
				t.Fatalf("expected COMPLETED, got %s", s.Phase())
			}
			if s.Score() != tc.want {
				t.Errorf("expected score %d, got %d", tc.want, s.Score())
			}
		})
	}
}

func TestScoring_OnceNeverExceedsQuestionCount(t *testing.T) {
	s, _ := newSession(t, 3, session.Options{ScoringPolicy: session.ScoreOnce})
	s.Start()

	for round := 0; round < 4; round++ {
		s.SelectOption("A")
		s.Next()
		s.SelectOption("A")
		s.Previous()
	}
	s.Next()
	s.SelectOption("A")
	s.Next()
	s.SelectOption("A")
	s.Next()

	if s.Phase() != session.PhaseCompleted {
		t.Fatalf("expected COMPLETED, got %s", s.Phase())
	}
	if s.Score() != 3 {
		t.Errorf("expected score 3, got %d", s.Score())
	}
	if !s.IsFullScore() {
		t.Error("expected full score")
	}
}

func TestScoring_WrongThenCorrectSelection(t *testing.T) {
	s, _ := newSession(t, 2, session.Options{})
	s.Start()

	s.SelectOption("B")
	s.SelectOption("A")
	s.Next()
	s.SelectOption("C")
	s.Next()

	if s.Score() != 1 {
		t.Errorf("expected score 1, got %d", s.Score())
	}
	if s.IsFullScore() {
		t.Error("did not expect full score")
	}
}

func TestSelectOption_RejectsUnknownAndEmpty(t *testing.T) {
	s, _ := newSession(t, 1, session.Options{})

	if s.SelectOption("A") {
		t.Error("SelectOption before start should be ignored")
	}

	s.Start()
	if s.SelectOption("") {
		t.Error("empty option should be ignored")
	}
	if s.SelectOption("Z") {
		t.Error("unknown option should be ignored")
	}
	if s.QuestionStatus(0) != session.StatusUnanswered {
		t.Error("rejected selections must not record an answer")
	}
}

func TestClearResponse_LeavesQuestionUnanswered(t *testing.T) {
	s, _ := newSession(t, 2, session.Options{})
	s.Start()

	s.SelectOption("B")
	if s.QuestionStatus(0) != session.StatusAnswered {
		t.Fatal("expected answered after selection")
	}

	if !s.ClearResponse() {
		t.Fatal("expected ClearResponse to apply")
	}
	if s.QuestionStatus(0) != session.StatusUnanswered {
		t.Error("expected unanswered after clear")
	}

	// Clearing does not remove a review mark.
	s.SelectOption("C")
	s.MarkForReviewAndNext()
	s.Previous()
	s.ClearResponse()

	if !s.Marked(0) {
		t.Error("clear must not remove the review mark")
	}
	a := s.Analysis()
	if a.Unanswered != 2 || a.Unvisited != 1 || a.MarkedForReview != 1 {
		t.Errorf("unexpected analysis %+v", a)
	}
}

func TestClearResponse_CountsAsVisited(t *testing.T) {
	s, _ := newSession(t, 3, session.Options{})
	s.Start()

	s.SelectOption("B")
	s.ClearResponse()

	want := session.Analysis{Answered: 0, Unanswered: 3, MarkedForReview: 0, Unvisited: 2}
	if a := s.Analysis(); a != want {
		t.Errorf("analysis = %+v, want %+v", a, want)
	}
	if s.QuestionStatus(0) != session.StatusUnanswered {
		t.Error("cleared question should be unanswered")
	}

	// Clearing a question that was never answered also visits it.
	s.Next()
	s.ClearResponse()
	if got := s.Analysis().Unvisited; got != 1 {
		t.Errorf("expected 1 unvisited question, got %d", got)
	}
}

func TestMarkForReviewAndNext_IsIdempotent(t *testing.T) {
	s, _ := newSession(t, 3, session.Options{})
	s.Start()

	s.MarkForReviewAndNext()
	s.Previous()
	s.MarkForReviewAndNext()

	if got := s.Analysis().MarkedForReview; got != 1 {
		t.Errorf("expected 1 marked question, got %d", got)
	}
	if s.CurrentIndex() != 1 {
		t.Errorf("expected to be on question 1, got %d", s.CurrentIndex())
	}
}

func TestMarkForReviewAndNext_ScoresLikeNext(t *testing.T) {
	s, _ := newSession(t, 1, session.Options{})
	s.Start()

	s.SelectOption("A")
	s.MarkForReviewAndNext()

	if s.Phase() != session.PhaseCompleted {
		t.Errorf("expected COMPLETED, got %s", s.Phase())
	}
	if s.Score() != 1 {
		t.Errorf("expected score 1, got %d", s.Score())
	}
}

func TestAnalysis_Invariants(t *testing.T) {
	s, _ := newSession(t, 6, session.Options{})
	s.Start()

	steps := []func(){
		func() { s.SelectOption("A") },
		func() { s.Next() },
		func() { s.SelectOption("B") },
		func() { s.MarkForReviewAndNext() },
		func() { s.MarkForReviewAndNext() },
		func() { s.Previous() },
		func() { s.ClearResponse() },
		func() { s.Next() },
		func() { s.JumpTo(5) },
		func() { s.SelectOption("C") },
	}

	check := func(step int) {
		a := s.Analysis()
		if a.Answered+a.Unanswered != 6 {
			t.Errorf("step %d: answered+unanswered = %d, want 6", step, a.Answered+a.Unanswered)
		}
		if a.Unvisited > a.Unanswered {
			t.Errorf("step %d: unvisited %d > unanswered %d", step, a.Unvisited, a.Unanswered)
		}
	}

	check(-1)
	for i, step := range steps {
		step()
		check(i)
	}

	a := s.Analysis()
	want := session.Analysis{Answered: 3, Unanswered: 3, MarkedForReview: 2, Unvisited: 2}
	if a != want {
		t.Errorf("analysis = %+v, want %+v", a, want)
	}
}

func TestPrevious_AtFirstQuestionIsNoop(t *testing.T) {
	s, clk := newSession(t, 3, session.Options{})
	s.Start()
	clk.Add(4 * time.Second)

	before := s.Snapshot()
	if s.Previous() {
		t.Error("Previous at index 0 should be ignored")
	}
	after := s.Snapshot()

	if after.CurrentIndex != 0 {
		t.Errorf("index moved to %d", after.CurrentIndex)
	}
	if *after.QuestionElapsedSeconds != *before.QuestionElapsedSeconds {
		t.Error("question clock should not reset on an ignored Previous")
	}
}

func TestOperationsBeforeStartAreIgnored(t *testing.T) {
	s, _ := newSession(t, 2, session.Options{})

	calls := map[string]func() bool{
		"select":   func() bool { return s.SelectOption("A") },
		"clear":    s.ClearResponse,
		"next":     s.Next,
		"previous": s.Previous,
		"mark":     s.MarkForReviewAndNext,
		"jump":     func() bool { return s.JumpTo(1) },
		"finish":   s.Finish,
		"tick":     s.Tick,
	}
	for name, call := range calls {
		if call() {
			t.Errorf("%s applied before start", name)
		}
	}
	if s.Phase() != session.PhaseNotStarted {
		t.Errorf("phase changed to %s", s.Phase())
	}
	if s.Analysis().Unvisited != 2 {
		t.Error("state changed before start")
	}
}

func TestJumpTo(t *testing.T) {
	s, clk := newSession(t, 4, session.Options{})
	s.Start()

	if s.JumpTo(4) || s.JumpTo(-1) {
		t.Error("out of range jump should be ignored")
	}

	s.SelectOption("A")
	clk.Add(2 * time.Second)
	if !s.JumpTo(3) {
		t.Fatal("expected jump to apply")
	}
	if s.CurrentIndex() != 3 {
		t.Errorf("expected index 3, got %d", s.CurrentIndex())
	}
	if s.Score() != 0 {
		t.Error("jumping must not score")
	}
	if qe, _ := s.QuestionElapsed(); qe != 0 {
		t.Errorf("question clock should reset on jump, got %v", qe)
	}
}

func TestFinish_IsIdempotentAndNotifiesOnce(t *testing.T) {
	var results []session.Result
	clk := clock.NewMock(epoch)
	s := session.New(newSet(3), clk, session.Options{
		OnComplete: func(r session.Result) { results = append(results, r) },
	})

	if s.Finish() {
		t.Error("Finish before start should be ignored")
	}

	s.Start()
	clk.Add(7 * time.Second)
	if !s.Finish() {
		t.Fatal("expected Finish to apply")
	}
	clk.Add(3 * time.Second)
	if s.Finish() {
		t.Error("second Finish should be ignored")
	}

	end, _ := s.CompletedAt()
	if !end.Equal(epoch.Add(7 * time.Second)) {
		t.Errorf("completion time moved to %v", end)
	}
	clk.Add(time.Hour)
	if len(results) != 1 {
		t.Fatalf("expected exactly one completion notification, got %d", len(results))
	}
	if results[0].TimeTakenSeconds != 7 {
		t.Errorf("expected 7s taken, got %d", results[0].TimeTakenSeconds)
	}
	if total, _ := s.TotalElapsed(); total != 7*time.Second {
		t.Errorf("total elapsed should freeze at 7s, got %v", total)
	}
	if _, ok := s.TimeLeft(); ok {
		t.Error("time left should be absent after completion")
	}
}

func TestScenario_AutoSubmitWithoutInteraction(t *testing.T) {
	var notified atomic.Int32
	clk := clock.NewMock(epoch)
	s := session.New(newSet(3), clk, session.Options{
		TotalTimeLimit: 500 * time.Second,
		OnComplete:     func(session.Result) { notified.Add(1) },
	})
	s.Start()

	clk.Add(499 * time.Second)
	if s.Phase() != session.PhaseInProgress {
		t.Fatalf("completed early: %s", s.Phase())
	}

	clk.Add(time.Second)
	waitPhase(t, s, clk, session.PhaseCompleted)
	if s.Score() != 0 {
		t.Errorf("expected score 0, got %d", s.Score())
	}
	end, ok := s.CompletedAt()
	if !ok || !end.Equal(epoch.Add(500*time.Second)) {
		t.Errorf("unexpected completion time %v", end)
	}

	if !clock.Settle(clk, 2*time.Second, func() bool { return notified.Load() == 1 }) {
		t.Fatal("completion was never notified")
	}
	clk.Add(time.Hour)
	if n := notified.Load(); n != 1 {
		t.Errorf("expected one completion, got %d", n)
	}
}

func TestDeadline_RearmedForFullDurationOnNavigation(t *testing.T) {
	// A long tick interval isolates the deadline from the tick check.
	s, clk := newSession(t, 3, session.Options{
		TotalTimeLimit: 10 * time.Second,
		TickInterval:   time.Hour,
	})
	s.Start()

	clk.Add(8 * time.Second)
	s.Next()
	clk.Add(8 * time.Second)
	if s.Phase() != session.PhaseInProgress {
		t.Fatal("navigation should have re-armed the deadline")
	}

	clk.Add(2 * time.Second)
	waitPhase(t, s, clk, session.PhaseCompleted)
	end, _ := s.CompletedAt()
	if !end.Equal(epoch.Add(18 * time.Second)) {
		t.Errorf("unexpected completion time %v", end)
	}
}

func TestTick_EnforcesGlobalLimit(t *testing.T) {
	s, clk := newSession(t, 3, session.Options{TotalTimeLimit: 10 * time.Second})
	s.Start()

	clk.Add(8 * time.Second)
	s.Next() // re-arms the deadline to t=18s
	clk.Add(2 * time.Second)

	waitPhase(t, s, clk, session.PhaseCompleted)
	end, _ := s.CompletedAt()
	if !end.Equal(epoch.Add(10 * time.Second)) {
		t.Errorf("unexpected completion time %v", end)
	}
}

func TestTick_DoesNotMutateAnswers(t *testing.T) {
	s, clk := newSession(t, 2, session.Options{
		TotalTimeLimit: 100 * time.Second,
		TickInterval:   time.Hour,
	})
	s.Start()
	s.SelectOption("A")
	s.MarkForReviewAndNext()

	before := s.Snapshot()
	clk.Add(30 * time.Second)
	if s.Tick() {
		t.Error("tick below the limit must not complete")
	}
	after := s.Snapshot()

	if before.Analysis != after.Analysis || s.Score() != 1 {
		t.Error("tick mutated answers, marks or score")
	}

	clk.Add(30 * time.Second)
	s.JumpTo(0) // pushes the deadline out to t=160s
	clk.Add(45 * time.Second)

	if !s.Tick() {
		t.Error("tick past the limit should complete")
	}
	if s.Tick() {
		t.Error("tick after completion should be ignored")
	}
}

func TestTimeLeft_MonotonicAndClamped(t *testing.T) {
	s, clk := newSession(t, 2, session.Options{TotalTimeLimit: 20 * time.Second})
	s.Start()

	prev := time.Duration(1<<62 - 1)
	for i := 0; i < 30; i++ {
		left, ok := s.TimeLeft()
		if !ok {
			break
		}
		if left < 0 {
			t.Fatalf("negative time left %v", left)
		}
		if left > prev {
			t.Fatalf("time left increased from %v to %v", prev, left)
		}
		prev = left
		clk.Add(700 * time.Millisecond)
		if i%3 == 0 {
			s.JumpTo(i % 2)
		}
	}
	waitPhase(t, s, clk, session.PhaseCompleted)
}

func TestQuestionTimeAccounting(t *testing.T) {
	s, clk := newSession(t, 2, session.Options{})
	s.Start()

	clk.Add(3 * time.Second)
	s.Next()
	clk.Add(5 * time.Second)
	s.Previous()
	clk.Add(2 * time.Second)
	s.Finish()

	res, ok := s.Result()
	if !ok {
		t.Fatal("expected a result after finish")
	}
	if res.Outcomes[0].TimeSpentSeconds != 5 || res.Outcomes[1].TimeSpentSeconds != 5 {
		t.Errorf("unexpected time spent: %+v", res.Outcomes)
	}
	if res.TimeTakenSeconds != 10 {
		t.Errorf("expected 10s taken, got %d", res.TimeTakenSeconds)
	}
	if qe, _ := s.QuestionElapsed(); qe != 2*time.Second {
		t.Errorf("question elapsed should freeze at completion, got %v", qe)
	}
}

func TestResult_Outcomes(t *testing.T) {
	s, _ := newSession(t, 3, session.Options{})
	if _, ok := s.Result(); ok {
		t.Error("result should be absent before completion")
	}

	s.Start()
	s.SelectOption("A")
	s.Next()
	s.SelectOption("B")
	s.MarkForReviewAndNext()
	s.Finish()

	res, _ := s.Result()
	if res.Score != 1 || res.TotalQuestions != 3 || res.FullScore {
		t.Errorf("unexpected summary %+v", res)
	}
	if !res.Outcomes[0].Correct || res.Outcomes[1].Correct {
		t.Errorf("unexpected correctness %+v", res.Outcomes)
	}
	if !res.Outcomes[1].Marked || res.Outcomes[2].Selected != nil {
		t.Errorf("unexpected outcome details %+v", res.Outcomes)
	}
}

func TestScenario_EmptySetIsCompleted(t *testing.T) {
	s, clk := newSession(t, 0, session.Options{})

	if s.Phase() != session.PhaseCompleted {
		t.Fatalf("expected COMPLETED, got %s", s.Phase())
	}
	if s.Start() || s.Next() || s.Finish() {
		t.Error("operations on an empty set should be ignored")
	}
	if s.Score() != 0 {
		t.Errorf("expected score 0, got %d", s.Score())
	}
	if a := s.Analysis(); a != (session.Analysis{}) {
		t.Errorf("expected zero analysis, got %+v", a)
	}
	clk.Add(time.Hour)
	if _, ok := s.TotalElapsed(); !ok {
		t.Error("empty session should report its zero duration")
	}

	snap := s.Snapshot()
	if snap.Question != nil || snap.TotalQuestions != 0 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestSnapshot_HidesAnswerAndScoreWhileRunning(t *testing.T) {
	s, clk := newSession(t, 2, session.Options{})
	s.Start()
	s.SelectOption("B")
	clk.Add(3 * time.Second)

	snap := s.Snapshot()
	if snap.Question == nil || snap.Question.Prompt != "Question 1" {
		t.Fatalf("unexpected question %+v", snap.Question)
	}
	if snap.SelectedOption == nil || *snap.SelectedOption != "B" {
		t.Error("expected selected option B")
	}
	if snap.Score != nil {
		t.Error("score should be hidden while in progress")
	}
	if *snap.TimeLeftSeconds != 497 || *snap.TotalElapsedSeconds != 3 || *snap.QuestionElapsedSeconds != 3 {
		t.Errorf("unexpected timing %d/%d/%d", *snap.TimeLeftSeconds, *snap.TotalElapsedSeconds, *snap.QuestionElapsedSeconds)
	}
}

func TestParseScoringPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    session.ScoringPolicy
		wantErr bool
	}{
		{in: "", want: session.ScoreOnce},
		{in: "once", want: session.ScoreOnce},
		{in: " EVERY_ADVANCE ", want: session.ScoreEveryAdvance},
		{in: "twice", wantErr: true},
	}
	for _, tc := range tests {
		got, err := session.ParseScoringPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseScoringPolicy(%q) err = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseScoringPolicy(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
