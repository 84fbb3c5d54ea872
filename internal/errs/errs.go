package errs

import "errors"

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrSessionNotFound = errors.New("chat session not found")
	ErrInvalidTicket   = errors.New("subject and description are required")

	// ErrNotifierDisabled is returned by the notifier when messaging credentials are not configured.
	ErrNotifierDisabled = errors.New("notifier disabled: messaging credentials not configured")

	ErrUnknownAPI          = errors.New("unknown api")
	ErrQuotaNotConfigured  = errors.New("daily quota is not configured for this api")
	ErrRateLimitNotDefined = errors.New("rate limit is not configured for this api")
)
