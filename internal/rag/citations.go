package rag

import (
	"fmt"
	"regexp"
)

// citationMarkerPattern 匹配模型输出中的内联来源标记 [Source: <label>]
var citationMarkerPattern = regexp.MustCompile(`\[Source: ([^\]]+)\]`)

// RenderCitations 将答案文本中的来源标记替换为数字引用 [n]，
// 并返回按首次出现顺序去重的来源列表。标签按字符串精确比较，不做大小写归一化；
// 同一标签的后续出现复用首次分配的编号。已替换为 [n] 形式的文本不再匹配标记，
// 因此对自身输出重复调用不会产生进一步替换。
func RenderCitations(answer string) (string, []string) {
	sources := make([]string, 0)
	indexByLabel := make(map[string]int)

	rendered := citationMarkerPattern.ReplaceAllStringFunc(answer, func(marker string) string {
		label := citationMarkerPattern.FindStringSubmatch(marker)[1]
		index, seen := indexByLabel[label]
		if !seen {
			sources = append(sources, label)
			index = len(sources)
			indexByLabel[label] = index
		}
		return fmt.Sprintf("[%d]", index)
	})

	return rendered, sources
}
