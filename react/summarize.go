package react

import (
	"context"
	"strings"

	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/model"
)

const keepTailMessages = 4

// shouldSummarize reports whether the thread has grown long enough, and far
// enough past its last summarization, to warrant compaction before the next
// model call.
func shouldSummarize(conv *conversation.Store, threadID string, cfg Config) bool {
	_, messageCount, sinceLastSummary, _ := conv.Summary(threadID)
	return messageCount >= cfg.SummarizationThreshold && sinceLastSummary >= cfg.MinMessagesSinceSummary
}

// summarize concatenates all but the last keepTailMessages messages (images
// stripped) into a summary prompt, calls the model for a compacted
// narrative, combines it with any prior summary, and rewrites st.messages
// to [system] + summary + kept tail.
func (e *Engine) summarize(ctx context.Context, st *loopState, cfg Config) error {
	var systemMsg *model.Message
	rest := st.messages
	if len(rest) > 0 && rest[0].Role == model.RoleSystem {
		systemMsg = &rest[0]
		rest = rest[1:]
	}

	if len(rest) <= keepTailMessages {
		return nil
	}
	toSummarize, kept := rest[:len(rest)-keepTailMessages], rest[len(rest)-keepTailMessages:]

	var history strings.Builder
	for _, m := range toSummarize {
		if text := m.Text(); text != "" {
			history.WriteString(string(m.Role))
			history.WriteString(": ")
			history.WriteString(text)
			history.WriteString("\n")
		}
	}

	priorSummary, _, _, _ := e.conv.Summary(st.threadID)

	prompt, err := e.prompts.Render(cfg.SummarizePromptName, map[string]any{
		"History":      history.String(),
		"PriorSummary": priorSummary,
	})
	if err != nil {
		prompt = history.String()
	}

	resp, err := e.client.Invoke(ctx, model.Request{
		Messages:  []model.Message{model.NewTextMessage(model.RoleUser, prompt)},
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return err
	}

	combined := resp.Message.Text()
	if priorSummary != "" {
		combined = priorSummary + "\n" + combined
	}

	e.conv.SetSummary(st.threadID, combined, kept)

	newMessages := make([]model.Message, 0, len(kept)+2)
	if systemMsg != nil {
		newMessages = append(newMessages, *systemMsg)
	}
	newMessages = append(newMessages, model.NewTextMessage(model.RoleSystem, "Conversation summary: "+combined))
	newMessages = append(newMessages, kept...)
	st.messages = newMessages

	return nil
}
