// Package api provides the HTTP transport for the device handshake. It
// handles optional API-key authentication, JSON request/response
// serialization, and automatic retry with exponential backoff for transient
// failures.
//
// # Client Creation
//
//   - [NewClient]: struct-based configuration.
//   - [New]: functional options.
//
// A base URL is required. When an API key is configured it is sent via the
// X-API-Key header on every request.
//
// # Retry Behavior
//
// Requests are retried up to 3 times by default for these HTTP status codes:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// The delay doubles with each attempt and carries jitter; see [RetryConfig].
//
// # Error Handling
//
//   - [ErrUnauthorized]: 401 or 403.
//   - [ErrSessionNotFound]: 404.
//   - [ErrSessionExpired]: 410, the handshake session went stale.
//   - [ErrRateLimited]: 429.
//
// The [Client] type is safe for concurrent use.
package api
