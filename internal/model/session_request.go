package model

// CreateSessionRequest is the optional body of POST /api/v1/sessions.
// An empty QuestionSet selects the configured default set.
type CreateSessionRequest struct {
	QuestionSet string `json:"question_set" binding:"omitempty,max=64"`
}

// SelectOptionRequest records an answer for the current question.
type SelectOptionRequest struct {
	Option string `json:"option" binding:"required,max=1000"`
}

// JumpRequest moves to an arbitrary question.
type JumpRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}
