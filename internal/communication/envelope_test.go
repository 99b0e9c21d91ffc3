package communication

import (
	"encoding/json"
	"testing"

	fs "github.com/AnishMulay/sandfile/internal/file_service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	reg := NewPayloadRegistry()

	tests := []struct {
		name    string
		msg     Message
		want    any
		wantErr error
	}{
		{
			name: "registered payload",
			msg:  Message{From: "a", Type: MessageTypeOpen, Payload: OpenRequest{Name: "x"}},
			want: OpenRequest{Name: "x"},
		},
		{
			name: "pointer payload decodes to value",
			msg:  Message{Type: MessageTypeClose, Payload: &CloseRequest{Handle: fs.Handle{Index: 3, Epoch: 1}}},
			want: CloseRequest{Handle: fs.Handle{Index: 3, Epoch: 1}},
		},
		{
			name: "no payload",
			msg:  Message{Type: MessageTypeList},
			want: nil,
		},
		{
			name: "unregistered type stays raw",
			msg:  Message{Type: "custom", Payload: map[string]int{"k": 1}},
			want: json.RawMessage(`{"k":1}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeMessage(tt.msg)
			require.NoError(t, err)

			got, err := reg.DecodeMessage(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.From, got.From)
			assert.Equal(t, tt.msg.Type, got.Type)
			assert.Equal(t, tt.want, got.Payload)
		})
	}
}

func TestDecodeMessageErrors(t *testing.T) {
	reg := NewPayloadRegistry()

	_, err := reg.DecodeMessage([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidEnvelope)

	_, err = reg.DecodeMessage([]byte(`{"from":"a"}`))
	assert.ErrorIs(t, err, ErrMissingRequiredFields)

	_, err = reg.DecodeMessage([]byte(`{"type":"stat","payload":{"name":7}}`))
	assert.ErrorIs(t, err, ErrPayloadUnmarshalFailed)
}

func TestEncodeMessageRejectsUnmarshalablePayload(t *testing.T) {
	_, err := EncodeMessage(Message{Type: "x", Payload: make(chan int)})
	assert.ErrorIs(t, err, ErrPayloadMarshalFailed)
}

func TestResponseRoundTrip(t *testing.T) {
	data, err := EncodeResponse(&Response{Code: CodeConflict, Body: []byte{0xff, 0x00}, Headers: map[string]string{"k": "v"}})
	require.NoError(t, err)

	resp, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, CodeConflict, resp.Code)
	assert.Equal(t, []byte{0xff, 0x00}, resp.Body)
	assert.Equal(t, "v", resp.Headers["k"])

	_, err = DecodeResponse([]byte("{"))
	assert.ErrorIs(t, err, ErrResponseReadFailed)
}
