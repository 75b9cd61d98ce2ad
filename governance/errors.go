package governance

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure so that transports can render it consistently.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindInvalidState
	KindValidation
)

var kindNames = map[Kind]string{
	KindInternal:     "internal",
	KindNotFound:     "not_found",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindInvalidState: "invalid_state",
	KindValidation:   "validation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is a user-visible governance failure with a stable code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches errors of the same code so that a ValidationError built with a
// custom message still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrProposalNotFound = &Error{KindNotFound, "proposal_not_found", "proposal not found"}
	ErrUnauthorized     = &Error{KindUnauthorized, "unauthorized", "authentication required"}
	ErrForbidden        = &Error{KindForbidden, "forbidden", "not permitted"}
	ErrNotEligible      = &Error{KindForbidden, "not_eligible", "you are not eligible to vote on this proposal"}
	ErrProposalNotOpen  = &Error{KindInvalidState, "proposal_not_open", "voting is not open"}
	ErrNotClosedYet     = &Error{KindInvalidState, "not_closed_yet", "voting has not closed yet"}
	ErrAlreadyTallied   = &Error{KindInvalidState, "already_tallied", "proposal has already been tallied"}
	ErrTallyInProgress  = &Error{KindInvalidState, "tally_in_progress", "another tally of this proposal is in progress"}
	ErrInvalidChoice    = &Error{KindValidation, "invalid_choice", "choice must be Yes, No or Abstain"}
	ErrValidation       = &Error{KindValidation, "validation_error", "invalid request"}
)

// ValidationError returns an ErrValidation with a field specific message.
func ValidationError(format string, args ...interface{}) error {
	return &Error{
		Kind:    KindValidation,
		Code:    ErrValidation.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the Kind of err, or KindInternal when err is not a
// governance error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, "internal_error" for anything that
// is not a governance error.
func CodeOf(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return "internal_error"
}
