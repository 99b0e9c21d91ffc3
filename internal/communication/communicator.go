package communication

import "context"

type SandCode string

const (
	CodeOK               SandCode = "OK"
	CodeBadRequest       SandCode = "BAD_REQUEST"
	CodeNotFound         SandCode = "NOT_FOUND"
	CodeAlreadyExists    SandCode = "ALREADY_EXISTS"
	CodeConflict         SandCode = "CONFLICT"
	CodeInvalidHandle    SandCode = "INVALID_HANDLE"
	CodeCapacityExceeded SandCode = "CAPACITY_EXCEEDED"
	CodeUnavailable      SandCode = "UNAVAILABLE"
	CodeInternal         SandCode = "INTERNAL"
)

type Message struct {
	From    string
	Type    string
	Payload any
}

type Response struct {
	Code    SandCode          `json:"code"`
	Body    []byte            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type MessageHandler func(ctx context.Context, msg Message) (*Response, error)

type Communicator interface {
	Start(handler MessageHandler) error
	Stop() error
	Send(ctx context.Context, to string, msg Message) (*Response, error)
	Address() string
	RegisterPayloadType(msgType string, sample any)
}
