// Package rules implements RoutingRule and its condition language as a
// tagged sum type: a typed variant per predicate family, with evaluation
// dispatching on variant rather than on dynamic property access. The
// Predicate interface below is that dispatch point: each condition clause
// is a concrete Go type, and Condition evaluates as the AND of whichever
// clauses are present.
package rules

import (
	"regexp"
	"strings"

	"github.com/routex/routex/internal/analyzer"
	"github.com/routex/routex/internal/chatmsg"
)

// EvalContext is everything a Predicate needs to decide a match.
type EvalContext struct {
	Model        string
	Messages     []chatmsg.Message
	Tools        []chatmsg.Tool
	SessionID    string
	Metadata     map[string]string
	Analysis     analyzer.Analysis
	EstimatedTok int
}

// UserText returns the concatenated user-message text for text-pattern
// predicates.
func (c EvalContext) UserText() string {
	return chatmsg.ConcatUserText(c.Messages)
}

// Predicate is one typed condition clause. Custom-router exceptions and
// nil-registry lookups must never panic; Evaluate returns false for any
// internal fault rather than propagating it.
type Predicate interface {
	Evaluate(ctx EvalContext, registry *CustomRouterRegistry) bool
}

// TokenThreshold matches when estimated tokens is at least Threshold.
type TokenThreshold struct{ Threshold int }

func (p TokenThreshold) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return ctx.EstimatedTok >= p.Threshold
}

// Keywords matches when any keyword substring-matches the user text
// case-insensitively.
type Keywords struct{ Words []string }

func (p Keywords) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	lower := strings.ToLower(ctx.UserText())
	for _, kw := range p.Words {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// UserPattern matches a case-insensitive regex against the user text.
type UserPattern struct{ Pattern *regexp.Regexp }

func (p UserPattern) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	if p.Pattern == nil {
		return false
	}
	return p.Pattern.MatchString(ctx.UserText())
}

// ModelPattern matches a regex against the requested model name.
type ModelPattern struct{ Pattern *regexp.Regexp }

func (p ModelPattern) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	if p.Pattern == nil {
		return false
	}
	return p.Pattern.MatchString(ctx.Model)
}

// HasTools matches the observed hasTools flag against Want.
type HasTools struct{ Want bool }

func (p HasTools) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return (len(ctx.Tools) > 0) == p.Want
}

// HasImages matches the observed hasImages flag against Want.
type HasImages struct{ Want bool }

func (p HasImages) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return ctx.Analysis.Flags.HasImages == p.Want
}

// HasCode matches the analyzer's hasCode flag against Want.
type HasCode struct{ Want bool }

func (p HasCode) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return ctx.Analysis.Flags.HasCode == p.Want
}

// ContentCategory matches the analyzer's detected category.
type ContentCategory struct{ Category analyzer.Category }

func (p ContentCategory) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return ctx.Analysis.Category == p.Category
}

// ComplexityLevel matches the analyzer's detected complexity.
type ComplexityLevel struct{ Level analyzer.Complexity }

func (p ComplexityLevel) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return ctx.Analysis.Complexity == p.Level
}

// ProgrammingLanguage matches when Language is in the analyzer's detected
// language set.
type ProgrammingLanguage struct{ Language string }

func (p ProgrammingLanguage) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	for _, l := range ctx.Analysis.Languages {
		if strings.EqualFold(l, p.Language) {
			return true
		}
	}
	return false
}

// IntentIs matches the analyzer's detected intent.
type IntentIs struct{ Intent analyzer.Intent }

func (p IntentIs) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	return ctx.Analysis.Intent == p.Intent
}

// WordCountRange matches when the analyzer's word count falls within
// [Min, Max]. A zero Max means unbounded.
type WordCountRange struct {
	Min int
	Max int // 0 = unbounded
}

func (p WordCountRange) Evaluate(ctx EvalContext, _ *CustomRouterRegistry) bool {
	if ctx.Analysis.WordCount < p.Min {
		return false
	}
	if p.Max > 0 && ctx.Analysis.WordCount > p.Max {
		return false
	}
	return true
}

// CustomFunction dispatches to a named function in the custom-router
// registry. A boolean result is used directly; a Channel result (direct
// selection) is not recorded here — Predicate only reports match/no
// match, so CustomFunction matches whenever the registered function returns
// true OR selects a channel (the router re-invokes the registry to fetch the
// channel once the rule is known to match).
type CustomFunction struct{ Name string }

func (p CustomFunction) Evaluate(ctx EvalContext, registry *CustomRouterRegistry) bool {
	if registry == nil {
		return false
	}
	matched, _ := registry.Invoke(p.Name, ctx)
	return matched
}

// Condition is the AND of all its Predicates.
type Condition struct {
	Predicates []Predicate
}

// Evaluate reports whether every predicate in the condition matches. An
// empty condition always matches (a rule may target purely on priority).
func (c Condition) Evaluate(ctx EvalContext, registry *CustomRouterRegistry) bool {
	for _, p := range c.Predicates {
		if !p.Evaluate(ctx, registry) {
			return false
		}
	}
	return true
}
