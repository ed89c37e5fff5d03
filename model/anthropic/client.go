// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API. It translates the core's provider-agnostic
// model.Request/model.Response into sdk.MessageNewParams/sdk.Message calls
// using github.com/anthropics/anthropic-sdk-go as the outbound language-model
// collaborator.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/model"
)

// MessagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a mock in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client implements model.Client on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
	temperature  float64
}

// New builds an Anthropic-backed model.Client.
func New(msg MessagesClient, defaultModel string, maxTokens int, temperature float64) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if defaultModel == "" {
		return nil, errors.New("anthropic: default model identifier is required")
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, defaultModel: defaultModel, maxTokens: maxTokens, temperature: temperature}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client,
// authenticated with apiKey.
func NewFromAPIKey(apiKey, defaultModel string, maxTokens int, temperature float64) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, defaultModel, maxTokens, temperature)
}

// Invoke issues a non-streaming Messages.New request.
func (c *Client) Invoke(ctx context.Context, req model.Request) (model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return model.Response{}, err
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return model.Response{}, classifyError(err)
	}
	return translateMessage(msg), nil
}

// Stream issues a non-streaming call through Invoke and replays the finished
// message on the returned channel: one text event (when the reply has text),
// one event per tool call, then a terminal usage event. Provider-side
// streaming is not used, so the whole reply text arrives as a single event.
func (c *Client) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan model.StreamEvent, 2)
	go func() {
		defer close(ch)
		if text := resp.Message.Text(); text != "" {
			ch <- model.StreamEvent{Kind: model.StreamEventText, Text: text}
		}
		for _, tc := range toolCallsOf(resp.Message) {
			tc := tc
			ch <- model.StreamEvent{Kind: model.StreamEventToolCall, ToolCall: &tc}
		}
		ch <- model.StreamEvent{Kind: model.StreamEventUsage, Usage: &resp.Usage}
	}()
	return ch, nil
}

func toolCallsOf(m model.Message) []model.ToolCall {
	return m.ToolCalls
}

func (c *Client) prepareRequest(req model.Request) (sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return sdk.MessageNewParams{}, errors.New("anthropic: messages are required")
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	var system []sdk.TextBlockParam
	for _, m := range req.Messages {
		if m.Role == model.RoleSystem {
			system = append(system, sdk.TextBlockParam{Text: m.Text()})
			continue
		}
		role := sdk.MessageParamRoleUser
		if m.Role == model.RoleAssistant {
			role = sdk.MessageParamRoleAssistant
		}
		msgs = append(msgs, sdk.MessageParam{Role: role, Content: encodeBlocks(m)})
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeTools(req.Tools)
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}
	return params, nil
}

func encodeBlocks(m model.Message) []sdk.ContentBlockParamUnion {
	blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content)+1)
	for _, b := range m.Content {
		switch v := b.(type) {
		case model.TextBlock:
			if v.Text != "" {
				blocks = append(blocks, sdk.NewTextBlock(v.Text))
			}
		case model.ImageRefBlock:
			blocks = append(blocks, sdk.NewImageBlockBase64(v.MediaType, v.Base64))
		case model.ToolResultBlock:
			blocks = append(blocks, sdk.NewToolResultBlock(v.ToolCallID, v.Content, v.IsError))
		}
	}
	for _, tc := range m.ToolCalls {
		blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
	}
	return blocks
}

func encodeTools(specs []model.ToolSchema) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		out = append(out, sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{
			Properties: s.InputSchema["properties"],
		}, s.Name))
	}
	return out
}

func translateMessage(msg *sdk.Message) model.Response {
	out := model.Message{Role: model.RoleAssistant}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdk.TextBlock:
			out.Content = append(out.Content, model.TextBlock{Text: v.Text})
		case sdk.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(v.Input, &args)
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{ID: v.ID, Name: v.Name, Arguments: args})
		}
	}
	return model.Response{
		Message: out,
		Usage: model.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func classifyError(err error) error {
	if isRateLimited(err) {
		return corerrors.Wrap(corerrors.KindRateLimit, "anthropic rate limited", err)
	}
	return corerrors.Wrap(corerrors.KindTransport, "anthropic messages.new", err)
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
