package model

import (
	"regexp"
	"strconv"
	"strings"
)

// Difficulty is the difficulty tag of a section.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType is the tag shared by every question in a group.
type QuestionType string

const (
	TypeMultipleChoice          QuestionType = "multiple-choice"
	TypeMatching                QuestionType = "matching"
	TypeMatchingHeadings        QuestionType = "matching-headings"
	TypeMatchingInformation     QuestionType = "matching-information"
	TypeMatchingFeatures        QuestionType = "matching-features"
	TypeMatchingSentenceEndings QuestionType = "matching-sentence-endings"
	TypeDiagramLabelling        QuestionType = "plan-map-diagram-labelling"
	TypeFormCompletion          QuestionType = "form-completion"
	TypeNoteCompletion          QuestionType = "note-completion"
	TypeTableCompletion         QuestionType = "table-completion"
	TypeFlowChartCompletion     QuestionType = "flow-chart-completion"
	TypeSummaryCompletion       QuestionType = "summary-completion"
	TypeSentenceCompletion      QuestionType = "sentence-completion"
	TypeShortAnswer             QuestionType = "short-answer"
	TypeTrueFalseNotGiven       QuestionType = "true-false-not-given"
	TypeYesNoNotGiven           QuestionType = "yes-no-not-given"

	// TypeUnsupported stands in for any tag outside the enumeration.
	TypeUnsupported QuestionType = "unsupported"
)

var supportedTypes = map[QuestionType]bool{
	TypeMultipleChoice:          true,
	TypeMatching:                true,
	TypeMatchingHeadings:        true,
	TypeMatchingInformation:     true,
	TypeMatchingFeatures:        true,
	TypeMatchingSentenceEndings: true,
	TypeDiagramLabelling:        true,
	TypeFormCompletion:          true,
	TypeNoteCompletion:          true,
	TypeTableCompletion:         true,
	TypeFlowChartCompletion:     true,
	TypeSummaryCompletion:       true,
	TypeSentenceCompletion:      true,
	TypeShortAnswer:             true,
	TypeTrueFalseNotGiven:       true,
	TypeYesNoNotGiven:           true,
}

// ParseQuestionType maps an authored tag to a QuestionType. Tags are
// case-insensitive and may use underscores or spaces instead of dashes.
// Unknown tags map to TypeUnsupported.
func ParseQuestionType(tag string) QuestionType {
	t := strings.ToLower(strings.TrimSpace(tag))
	t = strings.NewReplacer("_", "-", " ", "-").Replace(t)
	if supportedTypes[QuestionType(t)] {
		return QuestionType(t)
	}
	return TypeUnsupported
}

// Supported reports whether t is part of the enumeration.
func (t QuestionType) Supported() bool {
	return supportedTypes[t]
}

// Section is one audio recording or one reading passage.
type Section struct {
	Title        string          `json:"title"`
	Difficulty   Difficulty      `json:"difficulty"`
	AudioURL     string          `json:"audio_url,omitempty"`
	Transcript   string          `json:"transcript,omitempty"`
	PassageTitle string          `json:"passage_title,omitempty"`
	PassageText  string          `json:"passage_text,omitempty"`
	Groups       []QuestionGroup `json:"groups"`
}

// QuestionGroup is a run of questions sharing one instruction and type.
type QuestionGroup struct {
	Type        QuestionType `json:"type"`
	RawType     string       `json:"raw_type,omitempty"`
	Instruction string       `json:"instruction"`
	Questions   []Question   `json:"questions"`
}

// QuestionKind names the identity scheme a question was authored with.
type QuestionKind string

const (
	KindNumber       QuestionKind = "number"
	KindGap          QuestionKind = "gap"
	KindCell         QuestionKind = "cell"
	KindStep         QuestionKind = "step"
	KindLabel        QuestionKind = "label"
	KindUnidentified QuestionKind = "unidentified"
)

// Identity is the authored identity of a question. Value is only meaningful
// when OK is true.
type Identity struct {
	Kind  QuestionKind `json:"kind"`
	Raw   string       `json:"raw"`
	Value int          `json:"value"`
	OK    bool         `json:"ok"`
}

// Question is implemented by every authored question variant.
type Question interface {
	Kind() QuestionKind
	Identity() Identity
	AcceptedAnswers(policy AnswerPolicy) []string
	Prompt() string
}

// AnswerPolicy selects how the single-string answer fields are combined when
// no explicit answer list is authored.
type AnswerPolicy string

const (
	// PolicyCollectAll accepts every non-empty single-string field.
	PolicyCollectAll AnswerPolicy = "collect-all"
	// PolicyFirstNonEmpty accepts only the first non-empty field.
	PolicyFirstNonEmpty AnswerPolicy = "first-non-empty"
)

// Valid reports whether p is a known policy.
func (p AnswerPolicy) Valid() bool {
	return p == PolicyCollectAll || p == PolicyFirstNonEmpty
}

// AnswerKey holds every accepted-answer field a question may carry.
type AnswerKey struct {
	Answers       []string `json:"answers,omitempty"`
	Answer        string   `json:"answer,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	CorrectMatch  string   `json:"correct_match,omitempty"`
}

// AcceptedAnswers returns the accepted-answer set. An explicit non-empty list
// wins; otherwise the single-string fields are read in the order answer,
// correct answer, correct match.
func (k AnswerKey) AcceptedAnswers(policy AnswerPolicy) []string {
	if len(k.Answers) > 0 {
		return append([]string(nil), k.Answers...)
	}
	var out []string
	for _, v := range []string{k.Answer, k.CorrectAnswer, k.CorrectMatch} {
		if v == "" {
			continue
		}
		out = append(out, v)
		if policy == PolicyFirstNonEmpty {
			break
		}
	}
	return out
}

// NumberQuestion carries an explicit numeric identity.
type NumberQuestion struct {
	Number int    `json:"number"`
	Text   string `json:"text,omitempty"`
	AnswerKey
}

func (q NumberQuestion) Kind() QuestionKind { return KindNumber }
func (q NumberQuestion) Prompt() string     { return q.Text }

func (q NumberQuestion) Identity() Identity {
	return Identity{Kind: KindNumber, Raw: strconv.Itoa(q.Number), Value: q.Number, OK: true}
}

// GapQuestion fills a gap in a note, form, summary or sentence.
type GapQuestion struct {
	GapID string `json:"gap_id"`
	Text  string `json:"text,omitempty"`
	AnswerKey
}

func (q GapQuestion) Kind() QuestionKind { return KindGap }
func (q GapQuestion) Prompt() string     { return q.Text }
func (q GapQuestion) Identity() Identity { return compositeIdentity(KindGap, q.GapID) }

// CellQuestion fills one cell of a table.
type CellQuestion struct {
	CellID string `json:"cell_id"`
	Text   string `json:"text,omitempty"`
	AnswerKey
}

func (q CellQuestion) Kind() QuestionKind { return KindCell }
func (q CellQuestion) Prompt() string     { return q.Text }
func (q CellQuestion) Identity() Identity { return compositeIdentity(KindCell, q.CellID) }

// StepQuestion fills one step of a flow chart.
type StepQuestion struct {
	StepID string `json:"step_id"`
	Text   string `json:"text,omitempty"`
	AnswerKey
}

func (q StepQuestion) Kind() QuestionKind { return KindStep }
func (q StepQuestion) Prompt() string     { return q.Text }
func (q StepQuestion) Identity() Identity { return compositeIdentity(KindStep, q.StepID) }

// LabelQuestion labels one point of a plan, map or diagram.
type LabelQuestion struct {
	LabelID string `json:"label_id"`
	Text    string `json:"text,omitempty"`
	AnswerKey
}

func (q LabelQuestion) Kind() QuestionKind { return KindLabel }
func (q LabelQuestion) Prompt() string     { return q.Text }
func (q LabelQuestion) Identity() Identity { return compositeIdentity(KindLabel, q.LabelID) }

// UnidentifiedQuestion has neither a numeric field nor a composite id that
// contains an integer. It is still numbered and graded.
type UnidentifiedQuestion struct {
	Raw  string `json:"raw,omitempty"`
	Text string `json:"text,omitempty"`
	AnswerKey
}

func (q UnidentifiedQuestion) Kind() QuestionKind { return KindUnidentified }
func (q UnidentifiedQuestion) Prompt() string     { return q.Text }

func (q UnidentifiedQuestion) Identity() Identity {
	return Identity{Kind: KindUnidentified, Raw: q.Raw}
}

var embeddedInt = regexp.MustCompile(`(\d+)\D*$`)

// compositeIdentity extracts the last integer embedded in a composite id,
// so "gap7" and "cell-12" resolve to 7 and 12.
func compositeIdentity(kind QuestionKind, raw string) Identity {
	id := Identity{Kind: kind, Raw: raw}
	m := embeddedInt.FindStringSubmatch(raw)
	if m == nil {
		return id
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return id
	}
	id.Value = n
	id.OK = true
	return id
}

// NumberedQuestion is a question with its assigned global number and where it
// came from.
type NumberedQuestion struct {
	Question     `json:"question"`
	Number       int          `json:"number"`
	SectionIndex int          `json:"section_index"`
	GroupIndex   int          `json:"group_index"`
	GroupType    QuestionType `json:"group_type"`
}

// GroupStat summarizes one numbered group.
type GroupStat struct {
	GroupNumber   int          `json:"group_number"`
	Type          QuestionType `json:"type"`
	Instruction   string       `json:"instruction"`
	QuestionCount int          `json:"question_count"`
	QuestionRange string       `json:"question_range"`
}

// SectionStat summarizes one numbered section.
type SectionStat struct {
	SectionNumber int                  `json:"section_number"`
	Title         string               `json:"title"`
	Difficulty    Difficulty           `json:"difficulty"`
	QuestionCount int                  `json:"question_count"`
	QuestionRange string               `json:"question_range"`
	QuestionTypes map[QuestionType]int `json:"question_types"`
	Groups        []GroupStat          `json:"groups"`
}

// TotalStat summarizes a whole test.
type TotalStat struct {
	TotalQuestions             int                `json:"total_questions"`
	AverageQuestionsPerSection float64            `json:"average_questions_per_section"`
	DifficultyBreakdown        map[Difficulty]int `json:"difficulty_breakdown"`
}
