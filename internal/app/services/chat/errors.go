package chat

import (
	"errors"

	domainchat "github.com/KhadijaXD/lostly/internal/domain/chat"
	domainitems "github.com/KhadijaXD/lostly/internal/domain/items"
	domainuser "github.com/KhadijaXD/lostly/internal/domain/user"
)

// ErrInvalidID is returned when a path or payload identifier is malformed.
var ErrInvalidID = errors.New("chat: invalid id")

// Kind classifies failures identically for REST and realtime callers.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidArgument
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, domainchat.ErrRoomNotFound),
		errors.Is(err, domainitems.ErrItemNotFound),
		errors.Is(err, domainitems.ErrClaimNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domainchat.ErrNotParticipant),
		errors.Is(err, domainchat.ErrClaimNotApproved),
		errors.Is(err, domainchat.ErrRoomInactive),
		errors.Is(err, domainchat.ErrParticipantsMismatch):
		return KindForbidden
	case errors.Is(err, domainchat.ErrContentRequired),
		errors.Is(err, domainchat.ErrContentTooLong),
		errors.Is(err, ErrInvalidID):
		return KindInvalidArgument
	case errors.Is(err, domainchat.ErrConcurrentUpdate),
		errors.Is(err, domainchat.ErrDuplicateRoom):
		return KindConflict
	default:
		return KindInternal
	}
}

// PublicMessage is the text shown to the caller. Internal details never leak.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, domainchat.ErrRoomNotFound):
		return "Chat not found"
	case errors.Is(err, domainitems.ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, domainitems.ErrClaimNotFound):
		return "Claim not found"
	case errors.Is(err, domainchat.ErrNotParticipant), errors.Is(err, domainchat.ErrParticipantsMismatch):
		return "Unauthorized access to this chat"
	case errors.Is(err, domainchat.ErrClaimNotApproved):
		return "Chat only available for approved claims"
	case errors.Is(err, domainchat.ErrRoomInactive):
		return "Chat is no longer active"
	case errors.Is(err, domainchat.ErrContentRequired):
		return "Message content is required"
	case errors.Is(err, domainchat.ErrContentTooLong):
		return "Message too long (max 1000 characters)"
	case errors.Is(err, ErrInvalidID):
		return "Invalid id"
	}
	switch KindOf(err) {
	case KindNotFound:
		return "Not found"
	case KindConflict:
		return "Chat is busy, please retry"
	default:
		return "Server error"
	}
}
