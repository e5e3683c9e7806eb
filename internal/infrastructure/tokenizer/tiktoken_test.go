package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCounter_Singleton(t *testing.T) {
	c1 := NewCounter()
	c2 := NewCounter()
	require.NotNil(t, c1)
	assert.Same(t, c1, c2)
	assert.Equal(t, "tiktoken", c1.Method())
}

func TestCounter_CountTokens(t *testing.T) {
	c := NewCounter()

	tests := []struct {
		name     string
		text     string
		minCount int
		maxCount int
	}{
		{"空字符串", "", 0, 0},
		{"简单英文", "Hello, world!", 3, 5},
		{"会议纪要", "Action items: ship the Q3 roadmap and hire two engineers.", 10, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := c.CountTokens(tt.text)
			assert.GreaterOrEqual(t, n, tt.minCount)
			assert.LessOrEqual(t, n, tt.maxCount)
		})
	}
}

func TestCounter_EstimateFallback(t *testing.T) {
	c := &Counter{}
	assert.Equal(t, 3, c.CountTokens("twelve chars"))
	assert.Equal(t, "estimate", c.Method())
}
