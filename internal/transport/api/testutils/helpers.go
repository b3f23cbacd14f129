package testutils

import "strings"

// MultibyteString возвращает строку из runes символов по 4 байта: длина в байтах вчетверо больше длины в рунах.
func MultibyteString(runes int) string {
	return strings.Repeat("😁", runes)
}

// OverLimit возвращает ASCII строку на байт длиннее limit.
func OverLimit(limit int) string {
	return strings.Repeat("k", limit+1)
}
