package ai

import (
	"github.com/pkoukk/tiktoken-go"

	"telkom-ai-demo/internal/domain/model"
)

// countTokens is a best-effort prompt token estimate shared by the adapters.
// Unknown models fall back to the cl100k_base encoding; a failure there
// reports zero rather than blocking the call path.
func countTokens(modelName string, msgs []model.Message) int {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	total := 0
	for _, m := range msgs {
		// +4 approximates the per-message framing overhead.
		total += len(enc.Encode(m.Content, nil, nil)) + 4
	}
	return total
}
