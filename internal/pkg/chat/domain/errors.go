package chat

import "errors"

// Sentinel errors for chat behaviors. Controllers map these onto the wire
// taxonomy; the precedence for edit/delete checks is: not found, then
// deleted, then not the sender, then no access.
var (
	ErrNoAccess             = errors.New("chat: no access to conversation")
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrMessageNotFound      = errors.New("chat: message not found")
	ErrMessageDeleted       = errors.New("chat: message is deleted")
	ErrNotMessageSender     = errors.New("chat: message belongs to another user")
	ErrEditConflict         = errors.New("chat: concurrent edit conflict")
	ErrInvalidBody          = errors.New("chat: invalid message body")
)
