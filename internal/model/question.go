package model

// Question represents a single multiple-choice question.
// JSON names follow the exam file format (question / options / answer).
type Question struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"question" validate:"required,max=4000"`
	Options []string `json:"options" validate:"required,min=1,max=26,dive,required,max=1000"`
	Answer  string   `json:"answer" validate:"required"`
}

// QuestionForTaker is a question without the correct answer, sent to the view layer.
type QuestionForTaker struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// ForTaker strips the correct answer.
func (q Question) ForTaker() QuestionForTaker {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return QuestionForTaker{
		Index:   q.Index,
		Prompt:  q.Prompt,
		Options: opts,
	}
}

// HasOption reports whether option is one of the question's choices.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}
