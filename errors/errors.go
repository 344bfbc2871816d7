package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation
var (
	ErrEmptyContent        = fmt.Errorf("message content is empty")
	ErrContentTooLong      = fmt.Errorf("message content exceeds maximum length")
	ErrUnsupportedLanguage = fmt.Errorf("unsupported language code")
	ErrInvalidPreference   = fmt.Errorf("invalid language preference list")
)

// Not found
var (
	ErrRoomNotFound    = fmt.Errorf("room not found")
	ErrMessageNotFound = fmt.Errorf("message not found")
)

// Authorization
var ErrNotParticipant = fmt.Errorf("caller is not a participant of the room")

// Provider
var (
	ErrProviderUnavailable = fmt.Errorf("translation provider unavailable")
	ErrProviderTimeout     = fmt.Errorf("translation provider timed out")
)

// Channel
var (
	ErrSubscribeTimeout = fmt.Errorf("channel subscription timed out")
	ErrChannelClosed    = fmt.Errorf("room channel is closed")
)

// HTTPStatus maps the error taxonomy to a transport status code.
// Validation, not-found and authorization errors surface synchronously;
// provider and channel failures that do reach a response are reported
// as upstream unavailability.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrUnsupportedLanguage),
		errors.Is(err, ErrInvalidPreference):
		return http.StatusBadRequest
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrSubscribeTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrChannelClosed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
