package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, 500, c.ChunkSize())
	assert.Equal(t, 0, c.Overlap())

	// 重叠不小于窗口时退回到窗口的四分之一
	c = NewChunker(100, 100)
	assert.Equal(t, 100, c.ChunkSize())
	assert.Equal(t, 25, c.Overlap())
}

func TestSplitEmptyText(t *testing.T) {
	c := NewChunker(500, 100)
	assert.Nil(t, c.Split(""))
}

func TestSplitShortText(t *testing.T) {
	c := NewChunker(500, 100)
	chunks := c.Split("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "hello world", chunks[0].Text)
}

func TestSplitExactWindow(t *testing.T) {
	c := NewChunker(10, 2)
	text := strings.Repeat("a", 10)
	chunks := c.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

func TestSplitSentenceBoundary(t *testing.T) {
	// 窗口20，句号在下标14处，超过窗口中点，应该在句号后截断
	c := NewChunker(20, 0)
	text := "First sentence. Second one follows here."
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "First sentence.", chunks[0].Text)
}

func TestSplitIgnoresEarlyBoundary(t *testing.T) {
	// 句号在窗口前半段时不截断，保留整个窗口
	c := NewChunker(20, 0)
	text := "Hi. " + strings.Repeat("a", 40)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Greater(t, len([]rune(chunks[0].Text)), 10)
}

func TestSplitIndexesAreSequential(t *testing.T) {
	c := NewChunker(50, 10)
	text := strings.Repeat("word and more text. ", 30)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, chunk.Text)
	}
}

func TestSplitCoversWholeText(t *testing.T) {
	// 无空白的连续文本：拼接去重叠后应还原原文
	c := NewChunker(10, 3)
	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		runes := []rune(chunks[i].Text)
		if len(runes) > c.Overlap() {
			rebuilt.WriteString(string(runes[c.Overlap():]))
		}
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	c := NewChunker(10, 4)
	text := strings.Repeat("x", 30)
	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	// 每块末尾4个字符应出现在下一块开头
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i].Text[len(chunks[i].Text)-4:]
		assert.True(t, strings.HasPrefix(chunks[i+1].Text, tail))
	}
}

func TestSplitAlwaysTerminates(t *testing.T) {
	// 重叠接近窗口大小时步长退化为1，仍必须终止
	c := NewChunker(10, 9)
	text := strings.Repeat("y", 100)
	chunks := c.Split(text)
	assert.NotEmpty(t, chunks)
	assert.Less(t, len(chunks), 200)
}

func TestSplitUnicodeSafe(t *testing.T) {
	// 多字节字符按rune计数，不会切出非法UTF-8
	c := NewChunker(5, 1)
	text := "你好世界这是一段中文文本用来验证分块"
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, strings.ToValidUTF8(chunk.Text, "") == chunk.Text)
	}
}

func TestSplitWhitespaceOnlyWindowSkipped(t *testing.T) {
	c := NewChunker(5, 0)
	text := "abcde     fghij"
	chunks := c.Split(text)
	for _, chunk := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
	}
}
