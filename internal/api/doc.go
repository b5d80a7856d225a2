// Package api provides the HTTP client of the mail API: message submission
// and the public key directory. It handles authentication, JSON
// serialization and retries.
//
// # Client Creation
//
// The package provides two ways to create a client:
//
//   - [NewClient]: Struct-based configuration for explicit, type-safe setup.
//   - [New]: Functional options pattern for flexible configuration.
//
// Both require an API key and base URL. The API key is sent as a bearer
// token on every request.
//
// # Retry Behavior
//
// [Client.Do] retries idempotent requests with exponential backoff, by
// default up to 3 times, on network failures and on these status codes:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// [Client.SendMessage] never retries. Its payload holds single-use session
// keys; a failed send is repeated by rebuilding the whole payload.
//
// # Error Handling
//
// HTTP failures are returned as [apierrors.APIError] and match the
// sentinels of the apierrors package with errors.Is. Transport failures are
// returned as [apierrors.NetworkError].
package api
