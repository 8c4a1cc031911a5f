package kafka

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "q1", Value: map[string]any{"query": "cat dog", "hits": 2}},
		{Key: "q2", Value: "plain"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("q1"), msgs[0].Key)
	assert.JSONEq(t, `{"query":"cat dog","hits":2}`, string(msgs[0].Value))
	assert.Equal(t, `"plain"`, string(msgs[1].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "bad", Value: math.Inf(1)}})
	assert.Error(t, err)
}
