package rag

import "strings"

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// Chunker 文本分块器，按字符窗口切分并优先在句子边界截断
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// ChunkSize 返回目标窗口大小
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap 返回相邻块的重叠宽度
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// Split 将文本切分为多个chunk。
// 游标从0开始推进，每步取 [cursor, cursor+size) 窗口；窗口未到文本末尾时，
// 在窗口内查找最右侧的句子终止符（.?!或换行），若该位置超过窗口中点则在此截断，
// 否则保留整个窗口，避免产生过小的块。游标前进量为本步消费的窗口长度减去重叠宽度，
// 最少前进1个字符，保证不会原地打转。
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	var chunks []Chunk
	cursor := 0
	for cursor < total {
		end := cursor + c.chunkSize
		if end > total {
			end = total
		}
		window := runes[cursor:end]

		// 只有窗口未覆盖到文本末尾时才做句子边界截断
		if end < total {
			if brk := lastSentenceBreak(window); brk >= 0 && float64(brk) > float64(c.chunkSize)*0.5 {
				window = window[:brk+1]
			}
		}

		consumed := len(window)
		piece := strings.TrimSpace(string(window))
		if piece != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  piece,
			})
		}

		if cursor+consumed >= total {
			break
		}

		advance := consumed - c.chunkOverlap
		if advance < 1 {
			advance = 1
		}
		cursor += advance
	}

	return chunks
}

// lastSentenceBreak 返回窗口内最右侧句子终止符的下标，不存在时返回-1
func lastSentenceBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '?', '!', '\n':
			return i
		}
	}
	return -1
}
