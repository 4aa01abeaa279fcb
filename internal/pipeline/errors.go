package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

// ValidationError aborts a run whose dataset failed validation. Errors holds
// the validation stage's messages verbatim.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// StageError reports an unexpected fault inside a stage, distinct from a
// validation failure.
type StageError struct {
	Stage model.StageName
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsValidationFailure reports whether err (or any error in its chain) is a
// user-actionable input problem rather than an internal fault.
func IsValidationFailure(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, model.ErrEmptyDataset)
}
