// Package router implements SmartRouter: it evaluates the
// priority-ordered rule set over a content analysis and resolves the first
// matching rule's target against the eligible-channel snapshot.
package router

import (
	"strconv"
	"time"

	"github.com/routex/routex/internal/analyzer"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/rules"
)

// Context is the inbound request view the router needs.
type Context = rules.EvalContext

// Result is the router's decision.
type Result struct {
	Channel  *channelset.Channel
	Model    string // target model override, if the matched rule set one
	Rule     *rules.Rule
	Analysis analyzer.Analysis
}

// None reports whether the router found no rule-driven decision (the caller
// should fall through to the load balancer with no bias).
func (r Result) None() bool { return r.Channel == nil }

// Router ties a rule set, a custom-router registry, and the content
// analyzer together.
type Router struct {
	Registry *rules.CustomRouterRegistry
}

// New builds a Router backed by the given custom-router registry.
func New(registry *rules.CustomRouterRegistry) *Router {
	if registry == nil {
		registry = rules.NewCustomRouterRegistry()
	}
	return &Router{Registry: registry}
}

// Route evaluates ruleSet (already fetched from its own copy-on-write
// snapshot by the caller) against the given channel registry and analysis,
// returning the first satisfied rule whose target resolves to an eligible
// channel.
func (rt *Router) Route(now time.Time, ctx Context, ruleSet []rules.Rule, channels *channelset.Registry) Result {
	ordered := rules.Ordered(ruleSet)

	for i := range ordered {
		rule := ordered[i]
		if !rule.Condition.Evaluate(ctx, rt.Registry) {
			continue
		}

		// A customFunction predicate may have selected a channel directly;
		// re-invoke the registry once we know the rule matched to retrieve
		// it.
		if direct := directChannel(rule.Condition, ctx, rt.Registry); direct != nil {
			if snap := direct.Snapshot(); snap.Eligible(now, effectiveModel(rule, ctx)) {
				return Result{Channel: direct, Model: rule.TargetModel, Rule: &ordered[i], Analysis: ctx.Analysis}
			}
			continue
		}

		target, ok := resolveTarget(rule.TargetChannel, channels)
		if !ok {
			continue
		}
		if !target.Snapshot().Eligible(now, effectiveModel(rule, ctx)) {
			continue // unresolvable/ineligible target falls through to the next rule
		}
		return Result{Channel: target, Model: rule.TargetModel, Rule: &ordered[i], Analysis: ctx.Analysis}
	}

	return Result{Analysis: ctx.Analysis}
}

func effectiveModel(rule rules.Rule, ctx Context) string {
	if rule.TargetModel != "" {
		return rule.TargetModel
	}
	return ctx.Model
}

// directChannel scans a condition's predicates for a customFunction clause
// that resolved to a direct channel selection.
func directChannel(cond rules.Condition, ctx Context, registry *rules.CustomRouterRegistry) *channelset.Channel {
	for _, p := range cond.Predicates {
		cf, ok := p.(rules.CustomFunction)
		if !ok {
			continue
		}
		if _, ch := registry.Invoke(cf.Name, ctx); ch != nil {
			return ch
		}
	}
	return nil
}

func resolveTarget(ref string, channels *channelset.Registry) (*channelset.Channel, bool) {
	if ref == "" {
		return nil, false
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if ch, ok := channels.ByID(id); ok {
			return ch, true
		}
	}
	return channels.ByName(ref)
}
