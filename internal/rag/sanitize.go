package rag

import (
	"strings"
	"unicode"
)

// Sanitize 清洗文本：去除NUL与不可打印控制字符（保留空格、制表符、回车、换行），
// 并压缩连续空白。包含换行的空白段压缩为单个换行，否则压缩为单个空格。
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	var builder strings.Builder
	builder.Grow(len(s))

	var inSpace bool
	var spaceHasNewline bool
	flushSpace := func() {
		if !inSpace {
			return
		}
		if spaceHasNewline {
			builder.WriteRune('\n')
		} else {
			builder.WriteRune(' ')
		}
		inSpace = false
		spaceHasNewline = false
	}

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			inSpace = true
			spaceHasNewline = true
		case r == ' ' || r == '\t':
			inSpace = true
		case r == 0 || unicode.IsControl(r):
			// 丢弃NUL与其余控制字符
			continue
		case !unicode.IsPrint(r):
			continue
		default:
			flushSpace()
			builder.WriteRune(r)
		}
	}

	return strings.TrimSpace(builder.String())
}
