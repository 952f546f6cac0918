// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package coach

import "strings"

// keywordRunes caps the keyword length.
const keywordRunes = 32

// Keyword derives the label an instruction points at: "Tap Continue"
// gives "Continue", `Tap "Get Started".` gives "Started".
func Keyword(instruction string) string {
	text := strings.TrimSpace(instruction)
	if len(text) >= 4 && strings.EqualFold(text[:4], "tap ") {
		text = strings.TrimSpace(text[4:])
	}
	text = strings.Trim(text, `"'.!?`)

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return ""
	}
	keyword := []rune(tokens[len(tokens)-1])
	if len(keyword) > keywordRunes {
		keyword = keyword[:keywordRunes]
	}
	return string(keyword)
}

// MatchesInstruction reports whether the locator's matched text
// contains the instruction keyword, ignoring case. An instruction with
// no keyword matches anything.
func MatchesInstruction(instruction, matchedText string) bool {
	keyword := Keyword(instruction)
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(matchedText), strings.ToLower(keyword))
}
