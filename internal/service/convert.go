package service

import (
	"strings"

	"github.com/openai/openai-go"
)

// imagePlaceholder stands in for history turns that carried only images.
const imagePlaceholder = "[image]"

// ImageInput is an uploaded image on its way to the provider.
type ImageInput struct {
	Name      string
	MediaType string
	Data      []byte
}

// ToProviderMessages converts the relay request into provider messages:
// optional system prompt, history as plain text, then the new user turn.
func ToProviderMessages(systemPrompt string, history []HistoryMessage, text string, images []ImageInput) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)

	if systemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(systemPrompt))
	}

	for _, h := range history {
		content := h.Content
		if strings.TrimSpace(content) == "" {
			content = imagePlaceholder
		}
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(content)},
				},
			})
		default:
			msgs = append(msgs, openai.UserMessage(content))
		}
	}

	msgs = append(msgs, userTurn(text, images))
	return msgs
}

func userTurn(text string, images []ImageInput) openai.ChatCompletionMessageParamUnion {
	if len(images) == 0 {
		return openai.UserMessage(text)
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(images)+1)
	if text != "" {
		parts = append(parts, openai.TextContentPart(text))
	}
	for _, img := range images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: DataURL(img.MediaType, img.Data),
		}))
	}
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}
}
