package service

import (
	"strings"

	"github.com/spec-kit/ticket-dashboard/internal/domain"
)

// Statuses for which the source feed legitimately carries no handler.
var allowEmptyHandlerStatuses = map[domain.TicketStatus]struct{}{
	domain.TicketStatusOnHold:             {},
	domain.TicketStatusWaitingForSupplier: {},
	domain.TicketStatusCompleted:          {},
	domain.TicketStatusCancelled:          {},
}

// applyHandlerPolicy resolves candidates arriving without a handler. When
// the status is one that allows an unstaffed ticket, the sentinel default
// handler is assigned and the status is forced back to NEW — the forced
// status mirrors the upstream feed's behavior and is deliberately kept in
// this one function so it can be revisited on its own. Any other status
// without a handler is rejected.
//
// A handler cell that explicitly names the sentinel is treated like any
// other staffed handler here; only a blank cell triggers the
// default-and-force-NEW path.
func applyHandlerPolicy(cand domain.CandidateTicket, defaultHandler string) (domain.CandidateTicket, error) {
	if strings.TrimSpace(cand.Handler) != "" {
		cand.Handler = strings.TrimSpace(cand.Handler)
		return cand, nil
	}
	if !allowsEmptyHandler(cand) {
		return cand, &MissingHandlerError{ReportNumber: cand.ReportNumber, Row: cand.Row}
	}
	cand.Handler = defaultHandler
	cand.Status = domain.TicketStatusNew
	return cand, nil
}

// allowsEmptyHandler checks the candidate's raw status label against the
// allow list. Normalization maps unrecognized labels to COMPLETED, which
// would be allowed; that fallback must not sneak a row with an unknown
// label past the handler requirement, so the raw label is consulted and
// unrecognized labels always require a handler. Candidates built without
// a raw label fall back to the normalized status.
func allowsEmptyHandler(cand domain.CandidateTicket) bool {
	raw := strings.TrimSpace(cand.RawStatus)
	if raw == "" {
		_, ok := allowEmptyHandlerStatuses[cand.Status]
		return ok
	}
	status, known := domain.LookupStatus(raw)
	if !known {
		return false
	}
	_, ok := allowEmptyHandlerStatuses[status]
	return ok
}
