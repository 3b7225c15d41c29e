package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yourorg/docpilot/pkg/types"
)

// Explain asks the model for a short developer-facing description of ep.
func Explain(ctx context.Context, chat Chatter, ep types.ApiEndpoint) (string, error) {
	if chat == nil {
		return "", ErrRemoteUnavailable
	}
	text, err := chat.Chat(ctx, explainSystemPrompt, BuildExplainPrompt(ep))
	if err != nil {
		return "", fmt.Errorf("explain %s %s: %w", ep.Method, ep.Path, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty explanation")
	}
	return text, nil
}
