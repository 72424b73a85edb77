package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}
	cost := u.EstimateCost("claude-sonnet-4-5-20250929")
	// 1M input at $3 + 0.5M output at $15
	assert.InDelta(t, 3.0+7.5, cost, 0.001)
}

func TestTokenUsage_EstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1000}
	assert.Equal(t, 0.0, u.EstimateCost("some-future-model"))
}

func TestTokenUsage_EstimateCost_CacheTokens(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	cost := u.EstimateCost("claude-haiku-4-5-20251001")
	// cache write at 1.25x input, cache read at 0.1x input
	assert.InDelta(t, 0.80*1.25+0.80*0.1, cost, 0.001)
}

func TestMessageResponse_Text(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", r.Text())
}
