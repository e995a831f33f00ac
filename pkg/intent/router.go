// Package intent maps recognized utterances to structured Commands using an
// ordered table of compiled patterns. A Router is immutable once built.
package intent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/apperr"

	"github.com/google/uuid"
)

// ErrUnrecognized is wrapped by every routing failure.
var ErrUnrecognized = errors.New("intent not recognized")

type compiledRule struct {
	Rule
	patterns []*regexp.Regexp
}

type Router struct {
	rules         []compiledRule
	minConfidence float64
	now           func() time.Time
}

// Decision is a routed intent.
type Decision struct {
	Command      entity.Command
	Rule         string
	Confirmation string
}

func NewRouter(rules []Rule, minConfidence float64) (*Router, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if !rule.Command.IsValid() {
			return nil, fmt.Errorf("intent %q: unknown command %q", rule.Name, rule.Command)
		}
		cr := compiledRule{Rule: rule}
		for _, p := range rule.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("intent %q: pattern %q: %w", rule.Name, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}
	return &Router{rules: compiled, minConfidence: minConfidence, now: time.Now}, nil
}

// Route resolves an intent to a Command issued by source.
func (r *Router) Route(in entity.Intent, source entity.CommandSource) (entity.Command, error) {
	d, err := r.Resolve(in, source)
	return d.Command, err
}

// Resolve picks a rule for the intent. An exact intent-name match wins;
// otherwise the pattern with the longest match in the utterance, ties going
// to the earlier rule. The command carries the caller's source.
func (r *Router) Resolve(in entity.Intent, source entity.CommandSource) (Decision, error) {
	if in.Confidence < r.minConfidence {
		return Decision{}, apperr.Wrap(ErrUnrecognized, apperr.CodeUnrecognized,
			fmt.Sprintf("confidence %.2f below %.2f", in.Confidence, r.minConfidence))
	}

	rule, captured, ok := r.byName(in.Name)
	if !ok {
		rule, captured, ok = r.byPattern(in.RawText)
	}
	if !ok {
		return Decision{}, apperr.Wrap(ErrUnrecognized, apperr.CodeUnrecognized,
			fmt.Sprintf("no intent matches %q", in.RawText))
	}

	params := make(map[string]string, len(rule.Parameters)+len(captured)+len(in.Parameters))
	for k, v := range rule.Parameters {
		params[k] = v
	}
	for k, v := range captured {
		params[k] = v
	}
	for k, v := range in.Parameters {
		params[k] = v
	}

	id := uuid.NewString()
	if in.ID != "" {
		id = "intent-" + in.ID
	}
	issued := in.ReceivedAt
	if issued.IsZero() {
		issued = r.now()
	}

	return Decision{
		Command: entity.Command{
			ID:         id,
			Kind:       rule.Command,
			Parameters: params,
			IssuedAt:   issued,
			Source:     source,
		},
		Rule:         rule.Name,
		Confirmation: rule.Confirmation,
	}, nil
}

func (r *Router) byName(name string) (*compiledRule, map[string]string, bool) {
	if name == "" {
		return nil, nil, false
	}
	for i := range r.rules {
		if strings.EqualFold(r.rules[i].Name, name) {
			return &r.rules[i], nil, true
		}
	}
	return nil, nil, false
}

func (r *Router) byPattern(text string) (*compiledRule, map[string]string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, false
	}

	var (
		best     *compiledRule
		bestLen  = -1
		captured map[string]string
	)
	for i := range r.rules {
		for _, re := range r.rules[i].patterns {
			loc := re.FindStringSubmatchIndex(text)
			if loc == nil || loc[1]-loc[0] <= bestLen {
				continue
			}
			best = &r.rules[i]
			bestLen = loc[1] - loc[0]
			captured = groups(re, text, loc)
		}
	}
	return best, captured, best != nil
}

func groups(re *regexp.Regexp, text string, loc []int) map[string]string {
	out := map[string]string{}
	for i, name := range re.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		out[name] = strings.ToLower(text[loc[2*i]:loc[2*i+1]])
	}
	return out
}
