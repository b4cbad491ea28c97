// Package gate defines the coordinator's view of the external access gate:
// the messenger-side surface where subjects knock on gated resources and
// approvals take effect.
package gate

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadySatisfied is returned when an approval or removal finds the
	// gate already in the requested state. Callers treat it as success; gate
	// operations are convergent, not transactional.
	ErrAlreadySatisfied = errors.New("gate already in requested state")

	// ErrSubjectUnreachable is returned when a message cannot be delivered
	// to the subject (blocked bot, closed chat)
	ErrSubjectUnreachable = errors.New("subject unreachable")
)

// IsAlreadySatisfied reports whether err is the convergent success outcome
func IsAlreadySatisfied(err error) bool {
	return errors.Is(err, ErrAlreadySatisfied)
}

// JoinRequest is a subject knocking on a gated resource
type JoinRequest struct {
	SubjectID   int64
	ResourceID  int64
	RequestedAt time.Time
}

// Message is an inbound text message from a subject
type Message struct {
	SubjectID int64
	Text      string
}

// Update is one event from the gate's event stream
type Update struct {
	ID          int64
	JoinRequest *JoinRequest
	Message     *Message
}

// Gate provides operations against the external access gate
type Gate interface {
	// ApproveJoinRequest lets the subject through the gate. Approving an
	// already-admitted subject returns ErrAlreadySatisfied.
	ApproveJoinRequest(ctx context.Context, subjectID, resourceID int64) error

	// DeclineJoinRequest rejects the subject's pending request
	DeclineJoinRequest(ctx context.Context, subjectID, resourceID int64) error

	// RemoveSubject ejects the subject from the gated resource. Removing an
	// absent subject returns ErrAlreadySatisfied.
	RemoveSubject(ctx context.Context, subjectID, resourceID int64) error

	// SendMessage delivers a text message to the subject
	SendMessage(ctx context.Context, subjectID int64, text string) error

	// GetUpdates long-polls the gate's event stream starting at offset
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)

	// Ping verifies the gate credentials and reachability
	Ping(ctx context.Context) error
}
