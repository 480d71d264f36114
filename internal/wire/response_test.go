package wire

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBatch(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLen   int
		wantError bool
	}{
		{
			name:    "batch of data and error",
			body:    `[{"id":null,"result":{"type":"data","data":{"json":"hi"}}},{"id":null,"error":{"json":{"message":"nope","code":-32004,"data":{"code":"NOT_FOUND","httpStatus":404}}}}]`,
			wantLen: 2,
		},
		{
			name:    "single envelope",
			body:    `{"id":null,"result":{"type":"data","data":{"json":1}}}`,
			wantLen: 1,
		},
		{
			name:      "empty body",
			body:      ` `,
			wantError: true,
		},
		{
			name:      "html error page",
			body:      `<html>`,
			wantError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeBatch([]byte(tc.body))
			if tc.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tc.wantLen)
		})
	}
}

func TestDecodeBatchKeepsErrorPayload(t *testing.T) {
	got, err := DecodeBatch([]byte(`[{"id":null,"error":{"json":{"message":"nope"}}}]`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Result)
	assert.JSONEq(t, `{"json":{"message":"nope"}}`, string(got[0].Error))
}

func TestInputsRoundTrip(t *testing.T) {
	raw, err := EncodeInputs([]json.RawMessage{json.RawMessage(`{"json":"a"}`), nil, json.RawMessage(`{"json":3}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":{"json":"a"},"2":{"json":3}}`, string(raw))

	inputs, err := DecodeInputs(raw, 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"json":"a"}`, string(inputs[0]))
	assert.Nil(t, inputs[1])
	assert.JSONEq(t, `{"json":3}`, string(inputs[2]))

	_, err = DecodeInputs(raw, 1)
	assert.Error(t, err)
}

func TestCodes(t *testing.T) {
	assert.Equal(t, -32004, JSONRPCCode(CodeNotFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusOK, BatchStatus([]int{200, 200}))
	assert.Equal(t, http.StatusMultiStatus, BatchStatus([]int{200, 404}))
}
