// Package prompt supplies the default prompt template sources the core
// wires into the Prompt Registry at startup. Content here is illustrative,
// not normative: the Prompt Registry's lookup contract is what components
// depend on, not the exact wording of any one template.
package prompt

// DefaultSources returns the named template set used by the ReAct engine and
// the Plan-Execute-Respond pipeline when no operator-supplied prompt set is
// configured.
func DefaultSources() map[string]string {
	return map[string]string{
		"react_system": `You are a helpful assistant with access to tools. Answer the user's
question directly when you can; call a tool when you need information you
don't already have.
{{if .DocumentID}}The user is currently viewing document {{.DocumentID}}.{{end}}
{{if .SegmentID}}Focus on segment {{.SegmentID}} of that document.{{end}}`,

		"react_instruction": `{{.Query}}`,

		"react_summarize": `Summarize the following conversation so far, preserving the
facts and decisions that matter for answering later questions. Keep it under
a few sentences.
{{if .PriorSummary}}Prior summary: {{.PriorSummary}}{{end}}

{{.History}}`,

		"plan_execute_planner": `You are a planning assistant. Given a user query and a list of
available tools, produce a JSON object of the form
{"plan": [{"step": 1, "thought": "...", "tool_name": "...", "tool_input": {...}}]}
describing the tool calls needed to answer the query. Use only the tools listed.

Query: {{.Query}}

Available tools: {{.Tools}}`,

		"plan_execute_synthesizer": `Answer the user's query using only the sources below. Cite
every claim with the source it came from using the form [cite: N] (or
[cite: N, M] for multiple sources), where N is the Source ID. Do not
reference sources by any other name.

Query: {{.Query}}

{{.Sources}}`,

		"deep_research_synthesizer": `Write a final report answering the query below, drawing only
on the per-page evidence provided. Organize by theme rather than by page order.

Query: {{.Query}}

{{.Evidence}}`,
	}
}
