package communication

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Envelope is the wire form of a Message. Payload stays raw until the
// receiving side knows which Go type the message type maps to.
type Envelope struct {
	From    string          `json:"from"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func EncodeMessage(msg Message) ([]byte, error) {
	env := Envelope{From: msg.From, Type: msg.Type}
	if msg.Payload != nil {
		raw, err := json.Marshal(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadMarshalFailed, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageMarshalFailed, err)
	}
	return data, nil
}

func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseReadFailed, err)
	}
	return &resp, nil
}

// PayloadRegistry maps message types to the struct their payload decodes into.
type PayloadRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewPayloadRegistry() *PayloadRegistry {
	r := &PayloadRegistry{types: make(map[string]reflect.Type)}

	// Register default payload types
	r.Register(MessageTypeCreate, CreateRequest{})
	r.Register(MessageTypeOpen, OpenRequest{})
	r.Register(MessageTypeWrite, WriteRequest{})
	r.Register(MessageTypeRead, ReadRequest{})
	r.Register(MessageTypeClose, CloseRequest{})
	r.Register(MessageTypeDelete, DeleteRequest{})
	r.Register(MessageTypeList, ListRequest{})
	r.Register(MessageTypeStat, StatRequest{})

	return r
}

func (r *PayloadRegistry) Register(msgType string, sample any) {
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.Lock()
	r.types[msgType] = t
	r.mu.Unlock()
}

// DecodeMessage turns an encoded envelope back into a Message. Payloads of
// unregistered types are passed through as json.RawMessage.
func (r *PayloadRegistry) DecodeMessage(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Type == "" {
		return Message{}, ErrMissingRequiredFields
	}

	msg := Message{From: env.From, Type: env.Type}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return msg, nil
	}

	r.mu.RLock()
	payloadType, ok := r.types[env.Type]
	r.mu.RUnlock()
	if !ok {
		msg.Payload = env.Payload
		return msg, nil
	}

	payload := reflect.New(payloadType)
	if err := json.Unmarshal(env.Payload, payload.Interface()); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrPayloadUnmarshalFailed, err)
	}
	msg.Payload = payload.Elem().Interface()
	return msg, nil
}
