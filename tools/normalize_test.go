package tools

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTruncatesContent(t *testing.T) {
	long := strings.Repeat("a", MaxContentLen+500)
	result := normalize("echo", RawToolResult{Success: true, Message: long}, DefaultRefImageMaxAttach, DefaultRefImageMaxBase64Len)
	assert.LessOrEqual(t, len(result.Message), MaxContentLen)
	assert.Equal(t, MaxContentLen, len(result.Message))
}

func TestParseReferenceStringWithSeparator(t *testing.T) {
	ref := parseReferenceString("Annual Report : https://docs.example.com/report.pdf")
	assert.Equal(t, "Annual Report", ref.Title)
	assert.Equal(t, "https://docs.example.com/report.pdf", ref.Value)
	assert.Equal(t, ReferenceTypeDocument, ref.Type)
}

func TestParseReferenceStringWithoutSeparator(t *testing.T) {
	ref := parseReferenceString("https://docs.example.com/diagram.png")
	assert.Equal(t, ref.Title, ref.Value)
	assert.Equal(t, ReferenceTypeImage, ref.Type)
}

func TestClassifyReferenceTypeImageSuffixes(t *testing.T) {
	for _, suffix := range imageSuffixes {
		assert.Equal(t, ReferenceTypeImage, classifyReferenceType("https://x.example/a"+suffix))
	}
	assert.Equal(t, ReferenceTypeDocument, classifyReferenceType("https://x.example/a.txt"))
}

func TestExtractReferencesFromNestedData(t *testing.T) {
	refs := extractReferences(map[string]any{
		"data": map[string]any{
			"references": []any{"Doc A : https://x.example/a.pdf"},
		},
	})
	require.Len(t, refs, 1)
	assert.Equal(t, "Doc A", refs[0].Title)
}

func TestNormalizeStampsReferenceMetadata(t *testing.T) {
	result := normalize("hybrid_search", RawToolResult{
		Success: true,
		Data: map[string]any{
			"references": []any{"Doc A : https://x.example/a.pdf"},
		},
	}, DefaultRefImageMaxAttach, DefaultRefImageMaxBase64Len)
	require.Len(t, result.References, 1)
	assert.Equal(t, "hybrid_search", result.References[0].Metadata["tool"])
	assert.Equal(t, "tool_execution", result.References[0].Metadata["source"])
}

// TestNormalizeContentCapProperty checks that for any message text
// traversing normalize, the resulting text never exceeds MaxContentLen.
func TestNormalizeContentCapProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("normalized message never exceeds MaxContentLen", prop.ForAll(
		func(reps int) bool {
			msg := strings.Repeat("x", reps)
			result := normalize("echo", RawToolResult{Success: true, Message: msg}, DefaultRefImageMaxAttach, DefaultRefImageMaxBase64Len)
			return len(result.Message) <= MaxContentLen
		},
		gen.IntRange(0, MaxContentLen*2),
	))

	properties.TestingRun(t)
}

// TestReferenceNormalizationProperty checks that for any "<title> : <url>"
// string, title/value split on the separator and the classified type is
// image iff the url's suffix is a recognized image extension.
func TestReferenceNormalizationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	suffixes := append([]string{".txt", ".html", ".pdf"}, imageSuffixes...)

	properties.Property("title/value split and image classification match the url suffix", prop.ForAll(
		func(title string, suffixIdx int) bool {
			suffix := suffixes[suffixIdx%len(suffixes)]
			url := "https://x.example/a" + suffix
			ref := parseReferenceString(title + " : " + url)

			if ref.Title != title || ref.Value != url {
				return false
			}
			isImageSuffix := false
			for _, s := range imageSuffixes {
				if s == suffix {
					isImageSuffix = true
					break
				}
			}
			return (ref.Type == ReferenceTypeImage) == isImageSuffix
		},
		gen.AlphaString(),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestExtractAttachmentsBoundsCountAndSize(t *testing.T) {
	big := strings.Repeat("A", DefaultRefImageMaxBase64Len+1)
	small := "Zm9v"
	attachments := extractAttachments(map[string]any{
		"attachments": []any{
			map[string]any{"type": "image", "source": map[string]any{"media_type": "image/png", "data": big}},
			map[string]any{"type": "image", "source": map[string]any{"media_type": "image/png", "data": small}},
			map[string]any{"type": "image", "source": map[string]any{"media_type": "image/png", "data": small}},
		},
	}, 1, DefaultRefImageMaxBase64Len)
	require.Len(t, attachments, 1)
	assert.Equal(t, small, attachments[0].Data)
}
