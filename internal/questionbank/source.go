package questionbank

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/stemsi/examrunner/internal/model"
	"github.com/stemsi/examrunner/internal/validator"
)

var (
	ErrSetNotFound = errors.New("question set not found")
	ErrInvalidSet  = errors.New("invalid question set")
)

// setIDPattern keeps set ids safe for file names and cache keys.
var setIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// Source supplies question sets to new exam sessions.
type Source interface {
	Load(ctx context.Context, setID string) (*model.QuestionSet, error)
}

// InvalidSetError lists the fields that failed validation.
type InvalidSetError struct {
	SetID  string
	Fields map[string]string
}

func (e *InvalidSetError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("invalid question set %q: %s", e.SetID, strings.Join(parts, "; "))
}

func (e *InvalidSetError) Unwrap() error {
	return ErrInvalidSet
}

// ValidSetID reports whether id may name a question set.
func ValidSetID(id string) bool {
	return setIDPattern.MatchString(id)
}

// Validate checks struct tags plus the rules tags cannot express: options are
// unique within a question and the answer is one of them.
func Validate(set *model.QuestionSet) error {
	fields := validator.Struct(set)
	if fields == nil {
		fields = make(map[string]string)
	}

	for i, q := range set.Questions {
		seen := make(map[string]struct{}, len(q.Options))
		for j, opt := range q.Options {
			if _, dup := seen[opt]; dup {
				fields[fmt.Sprintf("questions[%d].options[%d]", i, j)] = "duplicate option"
			}
			seen[opt] = struct{}{}
		}
		if q.Answer != "" && !q.HasOption(q.Answer) {
			fields[fmt.Sprintf("questions[%d].answer", i)] = "answer must be one of the options"
		}
	}

	if len(fields) > 0 {
		return &InvalidSetError{SetID: set.ID, Fields: fields}
	}
	return nil
}
