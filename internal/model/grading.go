package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Verdict is the outcome for one question.
type Verdict string

const (
	VerdictCorrect    Verdict = "correct"
	VerdictIncorrect  Verdict = "incorrect"
	VerdictUnanswered Verdict = "unanswered"
)

// ManualGrade is a grader's decision for one question. GradeAuto defers to
// the automatic verdict.
type ManualGrade string

const (
	GradeCorrect   ManualGrade = "correct"
	GradeIncorrect ManualGrade = "incorrect"
	GradeAuto      ManualGrade = "auto"
)

// Valid reports whether g is one of the three manual grades.
func (g ManualGrade) Valid() bool {
	return g == GradeCorrect || g == GradeIncorrect || g == GradeAuto
}

// Verdict converts a non-auto grade to the verdict it forces.
func (g ManualGrade) Verdict() Verdict {
	if g == GradeCorrect {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

// Answer is a candidate's value for one question: a single string or, for
// multi-part questions, several strings.
type Answer struct {
	Parts []string
}

// TextAnswer builds a single-string answer.
func TextAnswer(s string) Answer {
	return Answer{Parts: []string{s}}
}

// String joins the parts for display.
func (a Answer) String() string {
	return strings.Join(a.Parts, ", ")
}

// MarshalJSON writes a single part as a plain string and zero or several
// parts as an array.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch len(a.Parts) {
	case 0:
		return []byte(`[]`), nil
	case 1:
		return json.Marshal(a.Parts[0])
	default:
		return json.Marshal(a.Parts)
	}
}

// UnmarshalJSON accepts a string, an array of strings, or null.
func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		a.Parts = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("decode answer list: %w", err)
		}
		a.Parts = parts
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	a.Parts = []string{s}
	return nil
}

// Submission maps global question numbers to candidate answers. A missing
// entry means unanswered.
type Submission map[int]Answer

// Band is a band score. OK is false when the raw count is below every
// threshold of the component's table.
type Band struct {
	Value float64
	OK    bool
}

// BandOf returns a defined band.
func BandOf(v float64) Band {
	return Band{Value: v, OK: true}
}

// NoBand is the undefined band.
var NoBand = Band{}

// String formats the band with one decimal, or returns "" for no band.
func (b Band) String() string {
	if !b.OK {
		return ""
	}
	return strconv.FormatFloat(b.Value, 'f', 1, 64)
}

// MarshalJSON writes null for no band.
func (b Band) MarshalJSON() ([]byte, error) {
	if !b.OK {
		return []byte("null"), nil
	}
	return json.Marshal(b.Value)
}

// UnmarshalJSON reads null as no band.
func (b *Band) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*b = NoBand
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode band: %w", err)
	}
	*b = BandOf(v)
	return nil
}
