package expr

import (
	"errors"
	"fmt"
)

// EvaluationError reports why an expression could not be parsed or
// evaluated. Pos is the byte offset in Expression where the problem was found
type EvaluationError struct {
	Expression string
	Reason     string
	Pos        int
}

// ErrEvaluation is the sentinel matched by every EvaluationError
var ErrEvaluation = errors.New("evaluation error")

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s at position %d in %q", e.Reason, e.Pos, e.Expression)
}

func (e *EvaluationError) Unwrap() error {
	return ErrEvaluation
}

func newError(src string, pos int, format string, args ...any) error {
	return &EvaluationError{
		Expression: src,
		Reason:     fmt.Sprintf(format, args...),
		Pos:        pos,
	}
}
