package planexec

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
)

const (
	minChunkChars   = 50
	forceChunkChars = 100
)

var (
	citationPattern = regexp.MustCompile(`\[cite:\s*(\d+(?:\s*,\s*\d+)*)\s*\] ?`)
	partialTailRe   = regexp.MustCompile(`\[(c(i(t(e(:[\s\d,]*)?)?)?)?)?$`)
	paragraphBreak  = "\n\n"
	spaceRunRe      = regexp.MustCompile(` {8,}`)
)

// synthesizer renders a prompt from the query and successful execution
// results and streams a cited answer, normalizing cumulative/delta provider
// styles, buffering tokens into natural-break chunks, and extracting inline
// [cite: n, m, ...] markers into citation_data events.
type synthesizer struct {
	client  model.Client
	prompts *promptregistry.Registry
}

func (s *synthesizer) synthesize(ctx context.Context, out chan<- events.Event, threadID, query string, results []ExecutionResult, cfg Config) (string, error) {
	successful := make([]ExecutionResult, 0, len(results))
	for _, r := range results {
		if r.Success {
			successful = append(successful, r)
		}
	}

	prompt, err := s.prompts.Render(cfg.SynthesizerPromptName, map[string]any{
		"Query":   query,
		"Sources": renderSources(successful),
	})
	if err != nil {
		return "", err
	}

	req := model.Request{
		Messages:  []model.Message{model.NewTextMessage(model.RoleUser, prompt)},
		MaxTokens: cfg.MaxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.ModelTimeout)
	defer cancel()

	ch, err := s.client.Stream(callCtx, req)
	if err != nil {
		return "", err
	}

	textID := uuid.NewString()
	var cumulative strings.Builder
	var pending strings.Builder
	var emitted strings.Builder

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
		pending.WriteString(delta)

		drainPending(&pending, &emitted, out, threadID, textID, false)
	}

	drainPending(&pending, &emitted, out, threadID, textID, true)
	return emitted.String(), nil
}

// drainPending extracts and emits every complete citation plus
// natural-break chunk available in pending, leaving any unresolved tail (a
// potential partial citation marker, or text too short for a break) for the
// next call. final forces the remaining tail out as a last chunk. Every
// chunk of text actually emitted (citations stripped) is appended to
// emitted, so the caller can recover the full synthesized answer.
func drainPending(pending, emitted *strings.Builder, out chan<- events.Event, threadID, textID string, final bool) {
	for {
		buf := pending.String()

		if loc := citationPattern.FindStringSubmatchIndex(buf); loc != nil {
			before := buf[:loc[0]]
			flushChunk(out, emitted, threadID, textID, before)
			ids := parseSourceIDs(buf[loc[2]:loc[3]])
			out <- events.NewCitationData(threadID, textID, ids, time.Now())
			pending.Reset()
			pending.WriteString(buf[loc[1]:])
			continue
		}

		safeEnd := len(buf)
		if m := partialTailRe.FindStringIndex(buf); m != nil {
			safeEnd = m[0]
		}
		ready := buf[:safeEnd]

		if final {
			flushChunk(out, emitted, threadID, textID, buf)
			pending.Reset()
			return
		}

		breakAt, found := findBreak(ready)
		if !found {
			return
		}
		flushChunk(out, emitted, threadID, textID, ready[:breakAt])
		pending.Reset()
		pending.WriteString(buf[breakAt:])
	}
}

func flushChunk(out chan<- events.Event, emitted *strings.Builder, threadID, textID, text string) {
	if text == "" {
		return
	}
	out <- events.NewTextChunk(threadID, textID, text, time.Now())
	emitted.WriteString(text)
}

// findBreak locates the earliest natural break in ready: a paragraph break,
// a sentence-ending punctuation mark, or a wide run of spaces, once at least
// minChunkChars have accumulated; failing that, forces a break once the
// buffer reaches forceChunkChars so a single slow sentence can't stall the
// stream indefinitely.
func findBreak(ready string) (int, bool) {
	if len(ready) < minChunkChars {
		return 0, false
	}
	if idx := strings.Index(ready, paragraphBreak); idx >= 0 {
		return idx + len(paragraphBreak), true
	}
	if idx := lastSentenceEnd(ready); idx >= 0 {
		return idx, true
	}
	if loc := spaceRunRe.FindStringIndex(ready); loc != nil {
		return loc[1], true
	}
	if len(ready) >= forceChunkChars {
		return forceChunkChars, true
	}
	return 0, false
}

func lastSentenceEnd(s string) int {
	idx := -1
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			idx = i + 1
		}
	}
	return idx
}

func parseSourceIDs(csv string) []int {
	parts := strings.Split(csv, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// renderSources prefixes each successful result with its source id heading,
// the shape the synthesizer prompt expects its {{.Sources}} variable in.
func renderSources(results []ExecutionResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "### Source ID %d\n%s\n\n", r.SourceID, resultText(r))
	}
	return b.String()
}

func resultText(r ExecutionResult) string {
	if content, ok := r.ResultData["content"].(string); ok && content != "" {
		return content
	}
	if list, ok := r.ResultData["results"]; ok {
		if raw, err := json.Marshal(list); err == nil {
			return string(raw)
		}
	}
	return r.ResultSummary
}
