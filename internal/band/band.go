// Package band converts raw correct-answer counts into band scores using
// per-component threshold tables.
package band

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pavelanni/bandscore/internal/model"
)

var (
	// ErrUnknownComponent is returned when no table is registered for a component.
	ErrUnknownComponent = errors.New("unknown band component")
	// ErrInvalidTable is returned when a table fails validation.
	ErrInvalidTable = errors.New("invalid band table")
)

// Component identifiers of the built-in tables.
const (
	Listening       = "listening"
	ReadingAcademic = "reading-academic"
	ReadingGeneral  = "reading-general"
)

// Threshold maps a minimum raw count to a band.
type Threshold struct {
	MinCorrect int     `json:"min" mapstructure:"min"`
	Band       float64 `json:"band" mapstructure:"band"`
}

// Table is the threshold table of one test component. Thresholds are kept
// sorted by descending MinCorrect.
type Table struct {
	Component    string      `json:"component"`
	MaxQuestions int         `json:"max_questions"`
	Thresholds   []Threshold `json:"thresholds"`
}

// Lookup returns the band of the first threshold whose MinCorrect does not
// exceed raw, after clamping raw to [0, MaxQuestions].
func (t Table) Lookup(raw int) model.Band {
	raw = t.clamp(raw)
	for _, th := range t.Thresholds {
		if th.MinCorrect <= raw {
			return model.BandOf(th.Band)
		}
	}
	return model.NoBand
}

func (t Table) clamp(raw int) int {
	if raw < 0 {
		return 0
	}
	if t.MaxQuestions > 0 && raw > t.MaxQuestions {
		return t.MaxQuestions
	}
	return raw
}

func (t Table) validate() error {
	if t.Component == "" {
		return fmt.Errorf("%w: empty component", ErrInvalidTable)
	}
	if len(t.Thresholds) == 0 {
		return fmt.Errorf("%w: %s has no thresholds", ErrInvalidTable, t.Component)
	}
	if t.MaxQuestions < 0 {
		return fmt.Errorf("%w: %s has negative max questions", ErrInvalidTable, t.Component)
	}
	for i, th := range t.Thresholds {
		if th.MinCorrect < 0 || th.Band < 0 || th.Band > 9 {
			return fmt.Errorf("%w: %s threshold %d out of range", ErrInvalidTable, t.Component, i)
		}
		if i > 0 && th.MinCorrect >= t.Thresholds[i-1].MinCorrect {
			return fmt.Errorf("%w: %s has duplicate minimum %d", ErrInvalidTable, t.Component, th.MinCorrect)
		}
	}
	return nil
}

// Registry holds tables keyed by component.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewRegistry returns a registry preloaded with the built-in tables.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[string]Table)}
	for _, t := range builtinTables() {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates t and adds or replaces the table for its component.
// Thresholds are sorted by descending MinCorrect before validation.
func (r *Registry) Register(t Table) error {
	t.Component = normalizeComponent(t.Component)
	th := append([]Threshold(nil), t.Thresholds...)
	sort.SliceStable(th, func(i, j int) bool { return th[i].MinCorrect > th[j].MinCorrect })
	t.Thresholds = th
	if err := t.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[t.Component] = t
	return nil
}

// Table returns the table registered for component.
func (r *Registry) Table(component string) (Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[normalizeComponent(component)]
	return t, ok
}

// Components returns the registered component identifiers, sorted.
func (r *Registry) Components() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for c := range r.tables {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Convert maps a raw correct count to a band for component.
func (r *Registry) Convert(component string, raw int) (model.Band, error) {
	t, ok := r.Table(component)
	if !ok {
		return model.NoBand, fmt.Errorf("convert %q: %w", component, ErrUnknownComponent)
	}
	return t.Lookup(raw), nil
}

func normalizeComponent(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

func builtinTables() []Table {
	return []Table{
		{
			Component:    Listening,
			MaxQuestions: 40,
			Thresholds: []Threshold{
				{39, 9.0}, {37, 8.5}, {35, 8.0}, {32, 7.5}, {30, 7.0}, {26, 6.5}, {23, 6.0},
				{18, 5.5}, {16, 5.0}, {13, 4.5}, {11, 4.0}, {8, 3.5}, {6, 3.0},
			},
		},
		{
			Component:    ReadingAcademic,
			MaxQuestions: 40,
			Thresholds: []Threshold{
				{39, 9.0}, {37, 8.5}, {35, 8.0}, {33, 7.5}, {30, 7.0}, {27, 6.5}, {23, 6.0},
				{19, 5.5}, {15, 5.0}, {13, 4.5}, {10, 4.0}, {8, 3.5}, {6, 3.0}, {4, 2.5},
			},
		},
		{
			Component:    ReadingGeneral,
			MaxQuestions: 40,
			Thresholds: []Threshold{
				{40, 9.0}, {39, 8.5}, {37, 8.0}, {36, 7.5}, {34, 7.0}, {32, 6.5}, {30, 6.0},
				{27, 5.5}, {23, 5.0}, {19, 4.5}, {15, 4.0}, {12, 3.5}, {9, 3.0}, {6, 2.5},
			},
		},
	}
}
