package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsControlCharacters(t *testing.T) {
	assert.Equal(t, "hello world", Sanitize("hel\x00lo\x07 world"))
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b", Sanitize("a    \t  b"))
}

func TestSanitizeWhitespaceRunWithNewline(t *testing.T) {
	// 含换行的空白段压缩为单个换行
	assert.Equal(t, "line1\nline2", Sanitize("line1   \n\n   line2"))
	assert.Equal(t, "a\nb", Sanitize("a\r\nb"))
}

func TestSanitizeTrimsEnds(t *testing.T) {
	assert.Equal(t, "text", Sanitize("  \n text \t\n "))
}

func TestSanitizeEmptyResults(t *testing.T) {
	assert.Equal(t, "", Sanitize(""))
	assert.Equal(t, "", Sanitize("   \n\t  "))
	assert.Equal(t, "", Sanitize("\x00\x01\x02"))
}

func TestSanitizePreservesUnicodeText(t *testing.T) {
	assert.Equal(t, "中文 текст emoji", Sanitize("中文  текст\temoji"))
}
