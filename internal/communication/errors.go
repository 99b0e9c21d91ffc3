package communication

import "errors"

var (
	// Server startup/shutdown errors
	ErrServerStartFailed = errors.New("failed to start server")
	ErrServerStopFailed  = errors.New("failed to stop server")
	ErrListenFailed      = errors.New("failed to listen on address")

	// Client connection errors
	ErrClientCreateFailed = errors.New("failed to create client")

	// Message handling errors
	ErrHandlerNotSet         = errors.New("message handler not set")
	ErrMessageSendFailed     = errors.New("failed to send message")
	ErrMessageHandlerFailed  = errors.New("message handler failed")
	ErrMissingRequiredFields = errors.New("missing required fields in request")

	// Serialization/deserialization errors
	ErrPayloadMarshalFailed   = errors.New("failed to marshal payload")
	ErrPayloadUnmarshalFailed = errors.New("failed to unmarshal payload")
	ErrMessageMarshalFailed   = errors.New("failed to marshal message")
	ErrInvalidEnvelope        = errors.New("invalid message envelope")
	ErrResponseReadFailed     = errors.New("failed to read response")
)
