package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// Configuration errors
	ErrConfiguration = errors.New("invalid or missing configuration")
	ErrMissingSecret = errors.New("api secret is required to sign requests")

	// Request client errors
	ErrTransmission    = errors.New("request transmission failed")
	ErrDecode          = errors.New("failed to decode exchange response")
	ErrRequestRejected = errors.New("exchange rejected the request")
	ErrRateLimited     = errors.New("api rate limit exceeded")
	ErrUnknownEndpoint = errors.New("unknown endpoint operation")

	// Facade validation errors
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")
	ErrUnsupportedIndicator = errors.New("unsupported indicator")
	ErrUnsupportedSource    = errors.New("unsupported source column")
	ErrSymbolNotFound       = errors.New("symbol not found")

	// Risk errors
	ErrBalanceFailsafe = errors.New("balance below failsafe floor")

	// Database errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
