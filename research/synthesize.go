package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
)

// DefaultSynthesisPromptName names the prompt the Lead renders over the
// accumulated evidence to produce its final synthesis.
const DefaultSynthesisPromptName = "deep_research_synthesizer"

// synthesizeEvidence renders the evidence prompt and collects the model's
// full streamed response as a single string. Deep-research synthesis has no
// inline citation contract of its own (evidence is already attributed by
// page_index in the prompt); it is a plain summary, not chunked into
// natural-break events the way the Plan-Execute-Respond synthesizer's
// answer is.
func synthesizeEvidence(ctx context.Context, client model.Client, prompts *promptregistry.Registry, query string, records []EvidenceRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	prompt, err := prompts.Render(DefaultSynthesisPromptName, map[string]any{
		"Query":    query,
		"Evidence": renderEvidence(records),
	})
	if err != nil {
		return "", err
	}

	req := model.Request{Messages: []model.Message{model.NewTextMessage(model.RoleUser, prompt)}}
	ch, err := client.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var cumulative strings.Builder
	var answer strings.Builder
	for ev := range ch {
		if ev.Kind != model.StreamEventText {
			continue
		}
		delta := ev.Text
		if ev.TextIsCumulative {
			delta = strings.TrimPrefix(ev.Text, cumulative.String())
		}
		if delta == "" {
			continue
		}
		cumulative.WriteString(delta)
		answer.WriteString(delta)
	}
	return answer.String(), nil
}

func renderEvidence(records []EvidenceRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "### Page %d\n%s\n\n", r.PageIndex, r.Summary)
	}
	return b.String()
}
