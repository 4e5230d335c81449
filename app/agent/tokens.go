package agent

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures and trims text in model tokens.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter loads the BPE ranks for model. The first call may download
// them into TIKTOKEN_CACHE_DIR.
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{enc: enc}, nil
}

func (t *TokenCounter) Count(text string) (int, error) {
	return len(t.enc.Encode(text, nil, nil)), nil
}

// Truncate keeps the first max tokens of text.
func (t *TokenCounter) Truncate(text string, max int) string {
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return t.enc.Decode(tokens[:max])
}
