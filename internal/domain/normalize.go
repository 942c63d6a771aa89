package domain

import (
	"strconv"
	"strings"
	"time"
)

// statusLabels maps source-feed labels (the feed is Dutch) and canonical
// names onto the status vocabulary. Lookup is case-insensitive.
var statusLabels = map[string]TicketStatus{
	"nieuw":                            TicketStatusNew,
	"actief":                           TicketStatusActive,
	"in behandeling":                   TicketStatusInProgress,
	"in afwachting":                    TicketStatusWaitingForApproval,
	"wacht op huurder":                 TicketStatusWaitingForTenant,
	"wacht op leverancier/ materialen": TicketStatusWaitingForSupplier,
	"ingepland (taak aangemaakt)":      TicketStatusScheduled,
	"offerte aanvraag":                 TicketStatusQuoteRequested,
	"opdrachtbon verstuurd":            TicketStatusOrderSent,
	"on hold":                          TicketStatusOnHold,
	"afgerond":                         TicketStatusCompleted,
	"geannuleerd":                      TicketStatusCancelled,

	"in afwachting goedkeuring (eigenaar)": TicketStatusWaitingForApproval,

	"new":                  TicketStatusNew,
	"active":               TicketStatusActive,
	"in_progress":          TicketStatusInProgress,
	"in progress":          TicketStatusInProgress,
	"waiting_for_approval": TicketStatusWaitingForApproval,
	"waiting_for_tenant":   TicketStatusWaitingForTenant,
	"waiting_for_supplier": TicketStatusWaitingForSupplier,
	"scheduled":            TicketStatusScheduled,
	"quote_requested":      TicketStatusQuoteRequested,
	"order_sent":           TicketStatusOrderSent,
	"on_hold":              TicketStatusOnHold,
	"completed":            TicketStatusCompleted,
	"cancelled":            TicketStatusCancelled,
}

var priorityLabels = map[string]TicketPriority{
	"laag":     TicketPriorityLow,
	"normaal":  TicketPriorityMedium,
	"medium":   TicketPriorityMedium,
	"hoog":     TicketPriorityHigh,
	"kritiek":  TicketPriorityCritical,
	"low":      TicketPriorityLow,
	"high":     TicketPriorityHigh,
	"critical": TicketPriorityCritical,
}

// LookupStatus resolves a raw label against the known status vocabulary,
// case-insensitively. The second return reports whether the label is
// recognized at all; callers that must distinguish retired or misspelled
// labels from real ones use this instead of ParseStatus.
func LookupStatus(raw string) (TicketStatus, bool) {
	status, ok := statusLabels[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

// ParseStatus normalizes a raw status label. An empty label defaults to
// NEW; an unrecognized non-empty label maps to COMPLETED, matching the
// source feed's fallback for retired status names.
func ParseStatus(raw string) TicketStatus {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TicketStatusNew
	}
	if status, ok := LookupStatus(trimmed); ok {
		return status
	}
	return TicketStatusCompleted
}

// ParsePriority normalizes a raw priority label, defaulting to MEDIUM.
func ParsePriority(raw string) TicketPriority {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TicketPriorityMedium
	}
	if priority, ok := priorityLabels[strings.ToLower(trimmed)]; ok {
		return priority
	}
	return TicketPriorityMedium
}

// ParseReportDate accepts the feed's day-first dates ("02-01-2024",
// "2/1/2024") as well as ISO forms. Returns the zero time when the value
// cannot be interpreted; callers substitute the current time.
func ParseReportDate(raw string) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t
		}
	}

	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 3 {
		return time.Time{}
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}
	}
	if len(parts[0]) == 4 {
		// year-first variant
		day, year = year, day
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
