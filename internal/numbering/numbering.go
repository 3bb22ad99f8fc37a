// Package numbering assigns global sequential question numbers across the
// sections and groups of a test and summarizes the result.
package numbering

import (
	"strconv"

	"github.com/pavelanni/bandscore/internal/model"
)

// NumberedGroup is a group whose questions carry global numbers.
type NumberedGroup struct {
	Type        model.QuestionType       `json:"type"`
	Instruction string                   `json:"instruction"`
	Questions   []model.NumberedQuestion `json:"questions"`
}

// NumberedSection is a section whose questions carry global numbers.
type NumberedSection struct {
	Title      string           `json:"title"`
	Difficulty model.Difficulty `json:"difficulty"`
	Groups     []NumberedGroup  `json:"groups"`
}

// Position locates a question by zero-based section, group and question index.
type Position struct {
	Section  int `json:"section"`
	Group    int `json:"group"`
	Question int `json:"question"`
}

// Collision records two questions in one group whose legacy identities
// resolve to the same integer through different schemes.
type Collision struct {
	Value  int            `json:"value"`
	First  model.Identity `json:"first"`
	Second model.Identity `json:"second"`
	At     Position       `json:"at"`
}

// Renumbering records an explicit numeric field that disagrees with the
// assigned global number.
type Renumbering struct {
	Explicit int `json:"explicit"`
	Assigned int `json:"assigned"`
}

// Diagnostics lists authored-content problems found while numbering. None of
// them stop numbering.
type Diagnostics struct {
	Unidentified     []Position    `json:"unidentified"`
	Collisions       []Collision   `json:"collisions"`
	Renumbered       []Renumbering `json:"renumbered"`
	UnsupportedTypes []string      `json:"unsupported_types"`
}

// Empty reports whether no diagnostics were recorded.
func (d Diagnostics) Empty() bool {
	return len(d.Unidentified) == 0 && len(d.Collisions) == 0 &&
		len(d.Renumbered) == 0 && len(d.UnsupportedTypes) == 0
}

// Result is the output of Number.
type Result struct {
	Sections    []NumberedSection   `json:"sections"`
	Stats       []model.SectionStat `json:"stats"`
	Total       model.TotalStat     `json:"total"`
	Diagnostics Diagnostics         `json:"diagnostics"`
}

// Number walks sections, groups and questions in order and assigns each
// question the next value of a counter starting at 1. Explicit numeric
// fields are ignored for numbering. The input is never modified.
func Number(sections []model.Section) Result {
	res := Result{
		Sections: make([]NumberedSection, 0, len(sections)),
		Stats:    make([]model.SectionStat, 0, len(sections)),
		Total: model.TotalStat{
			DifficultyBreakdown: make(map[model.Difficulty]int),
		},
	}
	seenUnsupported := make(map[string]bool)

	next := 1
	for si, sec := range sections {
		ns := NumberedSection{
			Title:      sec.Title,
			Difficulty: sec.Difficulty,
			Groups:     make([]NumberedGroup, 0, len(sec.Groups)),
		}
		stat := model.SectionStat{
			SectionNumber: si + 1,
			Title:         sec.Title,
			Difficulty:    sec.Difficulty,
			QuestionTypes: make(map[model.QuestionType]int),
			Groups:        make([]model.GroupStat, 0, len(sec.Groups)),
		}
		sectionFirst := next

		for gi, grp := range sec.Groups {
			gType := grp.Type
			if !gType.Supported() {
				raw := grp.RawType
				if raw == "" {
					raw = string(grp.Type)
				}
				gType = model.TypeUnsupported
				if !seenUnsupported[raw] {
					seenUnsupported[raw] = true
					res.Diagnostics.UnsupportedTypes = append(res.Diagnostics.UnsupportedTypes, raw)
				}
			}

			ng := NumberedGroup{
				Type:        gType,
				Instruction: grp.Instruction,
				Questions:   make([]model.NumberedQuestion, 0, len(grp.Questions)),
			}
			groupFirst := next
			byValue := make(map[int]model.Identity)

			for qi, q := range grp.Questions {
				pos := Position{Section: si, Group: gi, Question: qi}
				id := q.Identity()
				switch {
				case !id.OK:
					res.Diagnostics.Unidentified = append(res.Diagnostics.Unidentified, pos)
				case id.Kind == model.KindNumber:
					if id.Value != next {
						res.Diagnostics.Renumbered = append(res.Diagnostics.Renumbered,
							Renumbering{Explicit: id.Value, Assigned: next})
					}
				default:
					if prev, ok := byValue[id.Value]; ok && prev.Kind != id.Kind {
						res.Diagnostics.Collisions = append(res.Diagnostics.Collisions, Collision{
							Value:  id.Value,
							First:  prev,
							Second: id,
							At:     pos,
						})
					} else if !ok {
						byValue[id.Value] = id
					}
				}

				ng.Questions = append(ng.Questions, model.NumberedQuestion{
					Question:     q,
					Number:       next,
					SectionIndex: si,
					GroupIndex:   gi,
					GroupType:    gType,
				})
				next++
			}

			count := next - groupFirst
			if count > 0 {
				stat.QuestionTypes[gType] += count
			}
			stat.Groups = append(stat.Groups, model.GroupStat{
				GroupNumber:   gi + 1,
				Type:          gType,
				Instruction:   grp.Instruction,
				QuestionCount: count,
				QuestionRange: Range(groupFirst, next-1),
			})
			ns.Groups = append(ns.Groups, ng)
		}

		stat.QuestionCount = next - sectionFirst
		stat.QuestionRange = Range(sectionFirst, next-1)
		res.Sections = append(res.Sections, ns)
		res.Stats = append(res.Stats, stat)
		res.Total.DifficultyBreakdown[sec.Difficulty]++
	}

	res.Total.TotalQuestions = next - 1
	if len(sections) > 0 {
		res.Total.AverageQuestionsPerSection = float64(res.Total.TotalQuestions) / float64(len(sections))
	}
	return res
}

// Range formats an inclusive number range: "" when empty, "n" for a single
// question and "n-m" otherwise.
func Range(first, last int) string {
	switch {
	case last < first:
		return ""
	case first == last:
		return strconv.Itoa(first)
	default:
		return strconv.Itoa(first) + "-" + strconv.Itoa(last)
	}
}

// Questions returns every numbered question in global order.
func (r Result) Questions() []model.NumberedQuestion {
	out := make([]model.NumberedQuestion, 0, r.Total.TotalQuestions)
	for _, s := range r.Sections {
		for _, g := range s.Groups {
			out = append(out, g.Questions...)
		}
	}
	return out
}

// Lookup returns the question numbered n.
func (r Result) Lookup(n int) (model.NumberedQuestion, bool) {
	for _, s := range r.Sections {
		for _, g := range s.Groups {
			if len(g.Questions) == 0 {
				continue
			}
			first := g.Questions[0].Number
			if n >= first && n < first+len(g.Questions) {
				return g.Questions[n-first], true
			}
		}
	}
	return model.NumberedQuestion{}, false
}

// SectionQuestions returns the numbered questions of section index si.
func (r Result) SectionQuestions(si int) []model.NumberedQuestion {
	if si < 0 || si >= len(r.Sections) {
		return nil
	}
	var out []model.NumberedQuestion
	for _, g := range r.Sections[si].Groups {
		out = append(out, g.Questions...)
	}
	return out
}
