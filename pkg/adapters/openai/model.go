package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Model implements ports.ChatModel over an OpenAI-compatible chat completions
// endpoint.
type Model struct {
	client sdk.Client
	model  string
}

// New creates a chat model adapter for the given model name.
// Extra request options (custom base URL, org, ...) pass through to the SDK.
func New(apiKey string, model string, opts ...option.RequestOption) *Model {
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Model{
		client: sdk.NewClient(reqOpts...),
		model:  model,
	}
}

// Invoke sends the transcript and bound tools, returning one assistant message.
func (m *Model) Invoke(ctx context.Context, transcript []domain.Message, tools []domain.Tool) (domain.Message, error) {
	messages, err := toParams(transcript)
	if err != nil {
		return domain.Message{}, err
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(m.model),
		Messages: messages,
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}

	response, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.Message{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return domain.Message{}, fmt.Errorf("chat completion returned no choices")
	}

	return fromChoice(response.ID, response.Choices[0])
}

func toParams(transcript []domain.Message) ([]sdk.ChatCompletionMessageParamUnion, error) {
	params := make([]sdk.ChatCompletionMessageParamUnion, 0, len(transcript))

	for _, msg := range transcript {
		switch msg.Role {
		case domain.RoleSystem:
			params = append(params, sdk.SystemMessage(msg.Content))
		case domain.RoleUser:
			params = append(params, sdk.UserMessage(msg.Content))
		case domain.RoleAssistant:
			if !msg.HasToolCalls() {
				params = append(params, sdk.AssistantMessage(msg.Content))
				continue
			}
			toolCalls := make([]sdk.ChatCompletionMessageToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Args)
				if err != nil {
					return nil, fmt.Errorf("marshaling args for tool %q: %w", tc.Name, err)
				}
				toolCalls = append(toolCalls, sdk.ChatCompletionMessageToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: sdk.ChatCompletionMessageToolCallFunction{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			assistant := sdk.ChatCompletionMessage{
				Role:      "assistant",
				Content:   msg.Content,
				ToolCalls: toolCalls,
			}
			params = append(params, assistant.ToParam())
		case domain.RoleTool:
			params = append(params, sdk.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return params, nil
}

func toToolParams(tools []domain.Tool) []sdk.ChatCompletionToolParam {
	params := make([]sdk.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		params = append(params, sdk.ChatCompletionToolParam{
			Type: "function",
			Function: sdk.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: sdk.String(tool.Description),
				Parameters:  sdk.FunctionParameters(tool.Parameters),
			},
		})
	}
	return params
}

func fromChoice(responseID string, choice sdk.ChatCompletionChoice) (domain.Message, error) {
	out := domain.Message{
		ID:      responseID,
		Role:    domain.RoleAssistant,
		Content: choice.Message.Content,
	}

	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return domain.Message{}, fmt.Errorf("parsing args for tool %q: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out, nil
}
