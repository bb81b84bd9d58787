package questionbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/stemsi/examrunner/internal/model"
)

// FileSource reads question sets from <Dir>/<setID>.json, in the
// {"title": ..., "questions": [{"question", "options", "answer"}]} layout.
type FileSource struct {
	Dir string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

// Load reads and validates one set.
func (s *FileSource) Load(ctx context.Context, setID string) (*model.QuestionSet, error) {
	if !ValidSetID(setID) {
		return nil, ErrSetNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(filepath.Join(s.Dir, setID+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("read question file: %w", err)
	}

	set, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	set.ID = setID

	if err := Validate(set); err != nil {
		return nil, err
	}
	return set, nil
}

// Decode parses a question set document and assigns question indexes.
func Decode(raw []byte) (*model.QuestionSet, error) {
	var set model.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidSet, err)
	}
	set.Reindex()
	return &set, nil
}
