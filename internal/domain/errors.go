package domain

import "errors"

// History invariant violations reported by Ticket.ValidateHistory.
var (
	ErrEmptyHistory      = errors.New("ticket has no history entries")
	ErrNoOpenEntry       = errors.New("last history entry is closed")
	ErrDanglingOpenEntry = errors.New("non-final history entry is open")
	ErrHistoryOutOfOrder = errors.New("history entries not in chronological order")
)
