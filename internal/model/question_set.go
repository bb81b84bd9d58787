package model

// DefaultQuestionSetID is the set served when a caller does not name one.
const DefaultQuestionSetID = "exam"

// QuestionSet is an ordered, read-only sequence of questions.
type QuestionSet struct {
	ID        string     `json:"id"`
	Title     string     `json:"title" validate:"max=255"`
	Questions []Question `json:"questions" validate:"dive"`
}

// Len returns the number of questions in the set.
func (s *QuestionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Questions)
}

// Reindex assigns each question its ordinal position.
func (s *QuestionSet) Reindex() {
	for i := range s.Questions {
		s.Questions[i].Index = i
	}
}
