package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/csvetl/internal/extract"
	"github.com/JonMunkholm/csvetl/internal/load"
	"github.com/JonMunkholm/csvetl/internal/transform"
)

// UserMessage is an error rendered for the person running the job.
//
// Codes:
//
//	SRC001 - input file not found
//	SRC002 - input file is not a valid header + rows CSV
//	TRN001 - two columns normalize to the same name
//	DST001 - destination could not be opened
//	DST002 - writing the table failed
//	RUN001 - run cancelled
//	RUN002 - run timed out
//	ERR000 - anything else
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorMapping struct {
	target error
	msg    UserMessage
}

// Order matters: the first target found in the chain wins. Cancellation
// is checked first since it surfaces wrapped in any stage's error.
var errorMappings = []errorMapping{
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Run again when ready",
			Code:    "RUN001",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Run timed out",
			Action:  "Try again or raise DB_CONNECT_TIMEOUT",
			Code:    "RUN002",
		},
	},
	{
		target: extract.ErrSourceNotFound,
		msg: UserMessage{
			Message: "Input file not found",
			Action:  "Check the input path",
			Code:    "SRC001",
		},
	},
	{
		target: extract.ErrMalformedSource,
		msg: UserMessage{
			Message: "Input file is not a valid CSV",
			Action:  "Ensure the file has a header row and every row has the same number of fields",
			Code:    "SRC002",
		},
	},
	{
		target: transform.ErrDuplicateColumn,
		msg: UserMessage{
			Message: "Two columns have the same name after normalization",
			Action:  "Rename one of the columns or use --on-duplicate-column=last_wins",
			Code:    "TRN001",
		},
	},
	{
		target: load.ErrDestinationUnavailable,
		msg: UserMessage{
			Message: "Unable to open the destination database",
			Action:  "Check the destination path or URL and that the database is reachable",
			Code:    "DST001",
		},
	},
	{
		target: load.ErrWriteFailed,
		msg: UserMessage{
			Message: "Writing the table failed",
			Action:  "Check the table name and database permissions, then run again",
			Code:    "DST002",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Run again with --log-level=debug and check the logs",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.msg
		}
	}
	return defaultMessage
}

// FormatUserError returns a single line suitable for a terminal.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError wraps err, or returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
