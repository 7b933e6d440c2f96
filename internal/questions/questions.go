// internal/questions/questions.go
// Package questions splits exam-style Vietnamese text into individual
// questions with their multiple-choice options. It expects text already
// normalized into exam layout, but degrades gracefully on loose input:
// markers it cannot find simply produce fewer fields, never an error.
package questions

import (
	"regexp"
	"strconv"
	"strings"
)

// Question is one segmented exam question. Choices maps the marker letter
// (A-D) to the choice text; it is empty for free-response questions.
type Question struct {
	Index   int               `json:"index"`
	Stem    string            `json:"stem"`
	Choices map[string]string `json:"choices,omitempty"`
}

var (
	reMarker = regexp.MustCompile(`(?:^|\n)\s*(?i:Câu)\s*(\d+)\s*:\s*`)
	reChoice = regexp.MustCompile(`\n\s*([A-D])\.\s+`)
)

// Split segments text on "Câu N:" markers. Text before the first marker is
// ignored; text without any marker yields nil.
func Split(text string) []Question {
	markers := reMarker.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}

	out := make([]Question, 0, len(markers))
	for i, m := range markers {
		idx, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])
		stem, choices := splitChoices(body)
		out = append(out, Question{Index: idx, Stem: stem, Choices: choices})
	}
	return out
}

// splitChoices separates the question stem from its lettered choices. A
// choice marker only counts at the start of a line, matching the exam
// layout the normalizer produces.
func splitChoices(body string) (string, map[string]string) {
	locs := reChoice.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return body, nil
	}

	stem := strings.TrimSpace(body[:locs[0][0]])
	choices := make(map[string]string, len(locs))
	for i, loc := range locs {
		letter := body[loc[2]:loc[3]]
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		choices[letter] = strings.TrimSpace(body[loc[1]:end])
	}
	return stem, choices
}
