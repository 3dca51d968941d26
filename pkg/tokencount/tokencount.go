package tokencount

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

const (
	tokensPerMessage = 4
	tokensPerReply   = 3

	fallbackEncoding = "cl100k_base"
)

// CountToken estimates the prompt token count of a chat completion request.
// Unknown models fall back to the cl100k_base encoding, which is close
// enough for logging purposes.
func CountToken(messages []openai.ChatCompletionMessage, model string) (int, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return 0, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	total := tokensPerReply
	for _, message := range messages {
		total += tokensPerMessage
		total += len(encoding.Encode(message.Content, nil, nil))
		total += len(encoding.Encode(message.Role, nil, nil))
	}
	return total, nil
}
