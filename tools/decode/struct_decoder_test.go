package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readPayload struct {
	ConversationID string `json:"conversationId"`
	Seq            int64  `json:"seq"`
	Unread         int    `json:"unread"`
}

func TestDecodeJSONLoose(t *testing.T) {
	out, err := DecodeJSON[readPayload]([]byte(`{"conversationId":"c1","seq":"17","unread":3}`))
	require.NoError(t, err)
	assert.Equal(t, readPayload{ConversationID: "c1", Seq: 17, Unread: 3}, *out)
}

func TestDecodeRejectsFraction(t *testing.T) {
	_, err := Decode[readPayload](map[string]any{"unread": 1.5}, WithWeaklyTypedInput(false))
	assert.Error(t, err)
}

func TestDecodeNil(t *testing.T) {
	_, err := Decode[readPayload](nil)
	assert.Error(t, err)
}

func TestReadHelpers(t *testing.T) {
	m := map[string]any{"id": "m1", "n": float64(12), "s": "34", "bad": true}

	s, err := ReadString(m, "id")
	require.NoError(t, err)
	assert.Equal(t, "m1", s)

	n, err := ReadInt64(m, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = ReadInt64(m, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(34), n)

	_, err = ReadInt64(m, "bad")
	assert.Error(t, err)
	_, err = ReadString(m, "missing")
	assert.Error(t, err)
}
