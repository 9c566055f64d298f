// Package lstring holds the string helpers behind the string library: printf
// style formatting and lua style substring indexing.
package lstring

import "strings"

// Substring returns the bytes between start and end inclusive, both 1 based.
// Negative indexes count back from the end of the string.
func Substring(str string, start, end int64) string {
	length := int64(len(str))
	start = normalizeIndex(start, length)
	end = normalizeIndex(end, length)
	start = max(start, 1)
	end = min(end, length)
	if start > end {
		return ""
	}
	return str[start-1 : end]
}

// Reverse reverses the bytes of a string.
func Reverse(str string) string {
	out := []byte(str)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Repeat joins count copies of str with sep.
func Repeat(str, sep string, count int64) string {
	if count <= 0 {
		return ""
	}
	parts := make([]string, count)
	for i := range parts {
		parts[i] = str
	}
	return strings.Join(parts, sep)
}

func normalizeIndex(idx, length int64) int64 {
	if idx < 0 {
		return max(length+idx+1, 0)
	}
	return idx
}
