// Package grading matches candidate answers against accepted answers, layers
// grader overrides on top and aggregates the results.
package grading

import (
	"strings"

	"github.com/pavelanni/bandscore/internal/model"
)

// Matcher produces automatic verdicts.
type Matcher struct {
	Policy model.AnswerPolicy
}

// NewMatcher returns a Matcher using policy, or the collect-all policy when
// policy is not a known value.
func NewMatcher(policy model.AnswerPolicy) Matcher {
	if !policy.Valid() {
		policy = model.PolicyCollectAll
	}
	return Matcher{Policy: policy}
}

// Accepted returns the accepted-answer set of q under the matcher's policy.
func (m Matcher) Accepted(q model.Question) []string {
	if q == nil {
		return nil
	}
	return q.AcceptedAnswers(m.policy())
}

// Match compares a candidate answer with the accepted answers of q.
//
// An empty candidate is unanswered regardless of the accepted set. A
// question without accepted answers is never correct. Each non-empty part
// of a multi-part answer must equal an accepted answer after trimming and
// lowercasing.
func (m Matcher) Match(q model.Question, a model.Answer) model.Verdict {
	parts := make([]string, 0, len(a.Parts))
	for _, p := range a.Parts {
		if n := normalize(p); n != "" {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return model.VerdictUnanswered
	}

	accepted := m.Accepted(q)
	if len(accepted) == 0 {
		return model.VerdictIncorrect
	}
	set := make(map[string]struct{}, len(accepted))
	for _, v := range accepted {
		set[normalize(v)] = struct{}{}
	}

	for _, p := range parts {
		if _, ok := set[p]; !ok {
			return model.VerdictIncorrect
		}
	}
	return model.VerdictCorrect
}

func (m Matcher) policy() model.AnswerPolicy {
	if m.Policy == "" {
		return model.PolicyCollectAll
	}
	return m.Policy
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
