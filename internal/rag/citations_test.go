package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderCitationsNumbersByFirstOccurrence(t *testing.T) {
	answer := "Fact one [Source: alpha]. Fact two [Source: beta]. Again [Source: alpha]."
	rendered, sources := RenderCitations(answer)

	assert.Equal(t, "Fact one [1]. Fact two [2]. Again [1].", rendered)
	assert.Equal(t, []string{"alpha", "beta"}, sources)
}

func TestRenderCitationsNoMarkers(t *testing.T) {
	answer := "Plain answer with no markers."
	rendered, sources := RenderCitations(answer)

	assert.Equal(t, answer, rendered)
	assert.Empty(t, sources)
	assert.NotNil(t, sources)
}

func TestRenderCitationsCaseSensitiveLabels(t *testing.T) {
	// 标签比较大小写敏感，Alpha与alpha是两个来源
	answer := "[Source: Alpha] and [Source: alpha]"
	rendered, sources := RenderCitations(answer)

	assert.Equal(t, "[1] and [2]", rendered)
	assert.Equal(t, []string{"Alpha", "alpha"}, sources)
}

func TestRenderCitationsIdempotent(t *testing.T) {
	answer := "See [Source: manual.pdf] and [Source: faq]."
	once, sources := RenderCitations(answer)
	twice, again := RenderCitations(once)

	assert.Equal(t, once, twice)
	assert.Len(t, sources, 2)
	assert.Empty(t, again)
}

func TestRenderCitationsLabelWithSpaces(t *testing.T) {
	answer := "Quote [Source: Annual Report 2024]."
	rendered, sources := RenderCitations(answer)

	assert.Equal(t, "Quote [1].", rendered)
	assert.Equal(t, []string{"Annual Report 2024"}, sources)
}

func TestRenderCitationsEmptyInput(t *testing.T) {
	rendered, sources := RenderCitations("")
	assert.Equal(t, "", rendered)
	assert.Empty(t, sources)
}
