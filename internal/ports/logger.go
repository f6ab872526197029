package ports

import "context"

// Logger is the leveled logging interface every layer of the wrapper takes
// as a dependency. Fields are optional key/value maps merged into the entry.
type Logger interface {
	// Debug logs request/response detail useful when diagnosing signing or
	// decoding issues.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs normal operational progress (orders placed, cycles run).
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs recoverable conditions such as retried requests.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs a failure together with its underlying error.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
