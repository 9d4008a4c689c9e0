package domain

import (
	"errors"
	"fmt"
)

// SomethingWentWrong is the only message clients see for unexpected failures
const SomethingWentWrong = "Oops! Something went wrong. Try again later."

// Kind classifies a domain error. The HTTP layer maps kinds to status codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidHighScore
	KindInvalidProject
	KindHighScoreNotFound
	KindProjectNotFound
	KindOutOfRange
)

func (k Kind) String() string {
	switch k {
	case KindInvalidHighScore:
		return "invalid_high_score"
	case KindInvalidProject:
		return "invalid_project"
	case KindHighScoreNotFound:
		return "high_score_not_found"
	case KindProjectNotFound:
		return "project_not_found"
	case KindOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Error is a domain error with a client-facing message
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is a domain error of the same kind, so the
// sentinels below can be used with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Domain errors
var (
	ErrInvalidHighScore  = &Error{Kind: KindInvalidHighScore, Message: "invalid high score"}
	ErrInvalidProject    = &Error{Kind: KindInvalidProject, Message: "invalid project"}
	ErrHighScoreNotFound = &Error{Kind: KindHighScoreNotFound, Message: "high score not found"}
	ErrProjectNotFound   = &Error{Kind: KindProjectNotFound, Message: "project not found"}
	ErrOutOfRange        = &Error{Kind: KindOutOfRange, Message: "value out of range"}
)

// InvalidHighScore reports a submission that failed validation
func InvalidHighScore(message string) error {
	return &Error{Kind: KindInvalidHighScore, Message: message}
}

// InvalidProject reports a project name that failed validation
func InvalidProject(message string) error {
	return &Error{Kind: KindInvalidProject, Message: message}
}

// HighScoreNotFound reports a missing score for username
func HighScoreNotFound(username string) error {
	return &Error{
		Kind:    KindHighScoreNotFound,
		Message: fmt.Sprintf("High Score for user with username \"%s\" could not be found.", username),
	}
}

// HighScoreValueNotFound reports that no score with exactly this username
// and value exists.
func HighScoreValueNotFound(hs HighScore) error {
	return &Error{
		Kind:    KindHighScoreNotFound,
		Message: fmt.Sprintf("High Score for user with username \"%s\" and score \"%d\" could not be found.", hs.Username, hs.Score),
	}
}

// ProjectNotFound reports a missing project
func ProjectNotFound(name string) error {
	return &Error{
		Kind:    KindProjectNotFound,
		Message: fmt.Sprintf("Project with name \"%s\" could not be found.", name),
	}
}

// OutOfRange reports an argument outside its accepted range
func OutOfRange(message string) error {
	return &Error{Kind: KindOutOfRange, Message: message}
}

// KindOf returns the kind of the first domain error in err's chain
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrHighScoreNotFound) || errors.Is(err, ErrProjectNotFound)
}
