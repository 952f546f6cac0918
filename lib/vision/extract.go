// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

// firstObject returns the first balanced {...} in text, skipping braces
// inside JSON strings. Returns "" when none closes.
func firstObject(text string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for index := 0; index < len(text); index++ {
		character := text[index]
		if start < 0 {
			if character == '{' {
				start = index
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escaped:
				escaped = false
			case character == '\\':
				escaped = true
			case character == '"':
				inString = false
			}
			continue
		}
		switch character {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : index+1]
			}
		}
	}
	return ""
}
