package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNoSession        = fmt.Errorf("no session available")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")

	// Remote client errors
	ErrNoClient           = fmt.Errorf("backend client not available")
	ErrNetwork            = fmt.Errorf("network request failed")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Data errors
	ErrInvalidData      = fmt.Errorf("invalid row data")
	ErrSongNotFound     = fmt.Errorf("song not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrEntryNotFound    = fmt.Errorf("library entry not found")

	// Realtime errors
	ErrChannelClosed    = fmt.Errorf("realtime channel closed")
	ErrSubscribeFailed  = fmt.Errorf("realtime subscription failed")
	ErrMalformedPayload = fmt.Errorf("malformed realtime payload")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
