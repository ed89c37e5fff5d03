package tools

import (
	"fmt"
	"strings"
)

var imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".svg"}

// normalize applies the registry's normalization rules to a raw handler
// result: text truncation, reference extraction, and attachment bounding.
func normalize(toolName string, raw RawToolResult, refImageMaxAttach, refImageMaxBase64Len int) ToolResult {
	result := ToolResult{
		Success: raw.Success,
		Message: truncate(raw.Message, MaxContentLen),
		Data:    raw.Data,
		Error:   raw.Error,
	}

	refs := extractReferences(raw.Data)
	for i := range refs {
		if refs[i].Metadata == nil {
			refs[i].Metadata = map[string]string{}
		}
		refs[i].Metadata["tool"] = toolName
		refs[i].Metadata["source"] = "tool_execution"
	}
	result.References = refs

	result.Attachments = extractAttachments(raw.Data, refImageMaxAttach, refImageMaxBase64Len)

	return result
}

// truncate caps s at maxLen characters (runes), cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// extractReferences pulls references out of any of the raw shapes a tool
// handler might return: a top-level "references" list of "title : url"
// strings, a list of reference objects, or a nested "data.references".
func extractReferences(data map[string]any) []Reference {
	if data == nil {
		return nil
	}
	raw, ok := data["references"]
	if !ok {
		if nested, ok := data["data"].(map[string]any); ok {
			raw, ok = nested["references"]
			if !ok {
				return nil
			}
		} else {
			return nil
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Reference, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			out = append(out, parseReferenceString(v))
		case map[string]any:
			out = append(out, parseReferenceObject(v))
		}
	}
	return out
}

// parseReferenceString splits "<title> : <url>" on the first " : ". Without
// the separator, the entire string becomes both title and value.
func parseReferenceString(s string) Reference {
	if idx := strings.Index(s, " : "); idx >= 0 {
		title, url := s[:idx], s[idx+3:]
		return Reference{Title: title, Value: url, Type: classifyReferenceType(url)}
	}
	return Reference{Title: s, Value: s, Type: classifyReferenceType(s)}
}

func parseReferenceObject(m map[string]any) Reference {
	ref := Reference{}
	if v, ok := m["id"].(string); ok {
		ref.ID = v
	}
	if v, ok := m["title"].(string); ok {
		ref.Title = v
	}
	if v, ok := m["display_name"].(string); ok {
		ref.DisplayName = v
	}
	if v, ok := m["value"].(string); ok {
		ref.Value = v
	}
	if v, ok := m["type"].(string); ok && v != "" {
		ref.Type = ReferenceType(v)
	} else {
		ref.Type = classifyReferenceType(ref.Value)
	}
	if md, ok := m["metadata"].(map[string]any); ok {
		ref.Metadata = map[string]string{}
		for k, v := range md {
			if s, ok := v.(string); ok {
				ref.Metadata[k] = s
			}
		}
	}
	return ref
}

// classifyReferenceType defaults to document unless the URL path suffix
// indicates an image type.
func classifyReferenceType(url string) ReferenceType {
	lower := strings.ToLower(url)
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return ReferenceTypeImage
		}
	}
	return ReferenceTypeDocument
}

// extractAttachments accepts only image objects whose base64 payload is
// within bound, forwarding at most maxAttach of them.
func extractAttachments(data map[string]any, maxAttach, maxBase64Len int) []Attachment {
	if data == nil || maxAttach <= 0 {
		return nil
	}
	raw, ok := data["attachments"].([]any)
	if !ok {
		return nil
	}
	out := make([]Attachment, 0, maxAttach)
	for _, item := range raw {
		if len(out) >= maxAttach {
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := m["type"].(string); t != "image" {
			continue
		}
		var mediaType, b64 string
		if src, ok := m["source"].(map[string]any); ok {
			mediaType, _ = src["media_type"].(string)
			b64, _ = src["data"].(string)
		} else {
			mediaType, _ = m["media_type"].(string)
			b64, _ = m["data"].(string)
		}
		if b64 == "" || len(b64) > maxBase64Len {
			continue
		}
		out = append(out, Attachment{Type: "image", MediaType: mediaType, Data: b64})
	}
	return out
}

// ReferenceString renders a Reference back to the "<title> : <url>" wire
// format used when a tool result is logged for debugging.
func ReferenceString(r Reference) string {
	return fmt.Sprintf("%s : %s", r.Title, r.Value)
}
