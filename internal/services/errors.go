package services

import (
	"errors"
	"fmt"
	"strings"

	"spool/internal/queue"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage fails. Validation, configuration, and
// missing-media failures park the item for operator review; everything else
// stays retryable via failed.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return queue.StatusReview
	default:
		return queue.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

type userMessageError struct {
	msg string
	err error
}

func (e *userMessageError) Error() string { return e.err.Error() }

func (e *userMessageError) Unwrap() error { return e.err }

// WithUserMessage attaches chat-ready failure text to a stage error. The
// wrapped error keeps its full diagnostic chain for logs while the workflow
// manager surfaces only msg to the requester.
func WithUserMessage(err error, msg string) error {
	if err == nil {
		return nil
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return err
	}
	return &userMessageError{msg: msg, err: err}
}

// UserMessage extracts chat-ready failure text attached via WithUserMessage.
func UserMessage(err error) (string, bool) {
	var umErr *userMessageError
	if errors.As(err, &umErr) {
		return umErr.msg, true
	}
	return "", false
}
