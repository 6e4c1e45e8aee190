package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessResponseShape(t *testing.T) {
	resp := SuccessResponse("Table cleared", map[string]int{"table": 5})

	assert.True(t, resp.Success)
	assert.Equal(t, "Table cleared", resp.Message)
	assert.Empty(t, resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestErrorResponseOmitsData(t *testing.T) {
	resp := ErrorResponse("Could not get order", "order not found")

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))

	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, "order not found", decoded["error"])
	assert.NotContains(t, decoded, "data")
}
