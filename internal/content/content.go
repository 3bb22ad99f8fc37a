// Package content decodes authored test documents into typed sections.
//
// Authored questions identify themselves through one of several fields and
// carry their accepted answers in one of several others. Decoding resolves
// each record into exactly one question variant, so the rest of the module
// never has to probe optional fields.
package content

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pavelanni/bandscore/internal/model"
)

// ErrInvalidContent is returned when a document is not valid JSON or does
// not match the test schema.
var ErrInvalidContent = errors.New("invalid test content")

//go:embed schema/test.schema.json
var schemaJSON []byte

const schemaURL = "schema://test.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Document is a decoded authored test.
type Document struct {
	Name      string          `json:"name"`
	Component string          `json:"component"`
	Sections  []model.Section `json:"sections"`
}

type rawDocument struct {
	Name      string       `json:"name"`
	Component string       `json:"component"`
	Sections  []rawSection `json:"sections"`
}

type rawSection struct {
	Title        string     `json:"title"`
	Difficulty   string     `json:"difficulty"`
	AudioURL     string     `json:"audioUrl"`
	Transcript   string     `json:"transcript"`
	PassageTitle string     `json:"passageTitle"`
	PassageText  string     `json:"passageText"`
	Groups       []rawGroup `json:"groups"`
}

type rawGroup struct {
	Type        string        `json:"type"`
	Instruction string        `json:"instruction"`
	Questions   []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	Number        *int     `json:"number"`
	GapID         string   `json:"gapId"`
	CellID        string   `json:"cellId"`
	StepID        string   `json:"stepId"`
	LabelID       string   `json:"labelId"`
	Text          string   `json:"text"`
	Answers       []string `json:"answers"`
	Answer        string   `json:"answer"`
	CorrectAnswer string   `json:"correctAnswer"`
	CorrectMatch  string   `json:"correctMatch"`
}

// LoadFile reads and decodes the document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads a whole document from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the test schema and converts it.
func Parse(data []byte) (*Document, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	doc := &Document{
		Name:      raw.Name,
		Component: strings.ToLower(strings.TrimSpace(raw.Component)),
		Sections:  make([]model.Section, 0, len(raw.Sections)),
	}
	for _, rs := range raw.Sections {
		sec := model.Section{
			Title:        rs.Title,
			Difficulty:   model.Difficulty(strings.ToLower(strings.TrimSpace(rs.Difficulty))),
			AudioURL:     rs.AudioURL,
			Transcript:   rs.Transcript,
			PassageTitle: rs.PassageTitle,
			PassageText:  rs.PassageText,
			Groups:       make([]model.QuestionGroup, 0, len(rs.Groups)),
		}
		for _, rg := range rs.Groups {
			grp := model.QuestionGroup{
				Type:        model.ParseQuestionType(rg.Type),
				RawType:     rg.Type,
				Instruction: rg.Instruction,
				Questions:   make([]model.Question, 0, len(rg.Questions)),
			}
			for _, rq := range rg.Questions {
				grp.Questions = append(grp.Questions, rq.toQuestion())
			}
			sec.Groups = append(sec.Groups, grp)
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}

// Validate checks data against the embedded test schema.
func Validate(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile test schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// toQuestion picks the variant from the first identity field present, in
// the order number, gapId, cellId, stepId, labelId. A composite id without
// an embedded integer still yields its variant; its Identity reports !OK.
func (rq rawQuestion) toQuestion() model.Question {
	key := model.AnswerKey{
		Answers:       rq.Answers,
		Answer:        rq.Answer,
		CorrectAnswer: rq.CorrectAnswer,
		CorrectMatch:  rq.CorrectMatch,
	}
	switch {
	case rq.Number != nil:
		return model.NumberQuestion{Number: *rq.Number, Text: rq.Text, AnswerKey: key}
	case rq.GapID != "":
		return model.GapQuestion{GapID: rq.GapID, Text: rq.Text, AnswerKey: key}
	case rq.CellID != "":
		return model.CellQuestion{CellID: rq.CellID, Text: rq.Text, AnswerKey: key}
	case rq.StepID != "":
		return model.StepQuestion{StepID: rq.StepID, Text: rq.Text, AnswerKey: key}
	case rq.LabelID != "":
		return model.LabelQuestion{LabelID: rq.LabelID, Text: rq.Text, AnswerKey: key}
	default:
		return model.UnidentifiedQuestion{Text: rq.Text, AnswerKey: key}
	}
}
