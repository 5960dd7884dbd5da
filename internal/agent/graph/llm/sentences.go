package llm

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "st": true,
	"e.g": true, "i.e": true, "a.m": true, "p.m": true, "vs": true, "etc": true,
}

// LimitSentences keeps at most n sentences of text. Honorifics such as "Dr."
// and list markers such as "1." do not end a sentence.
func LimitSentences(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && !endsSentence(runes[:i]) {
			continue
		}
		count++
		if count == n {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return text
}

// endsSentence reports whether the word before a period is a sentence end.
func endsSentence(before []rune) bool {
	start := len(before)
	for start > 0 && !unicode.IsSpace(before[start-1]) {
		start--
	}
	word := strings.ToLower(strings.TrimLeft(string(before[start:]), "(\"'"))
	if word == "" {
		return true
	}
	if abbreviations[word] {
		return false
	}
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
