// Package bootstrap loads the on-disk channel/rule/transformer topology a
// fresh process starts with. Operators reconcile further changes through
// the admin HTTP surface; this file only covers process start.
package bootstrap

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/rules"
	"github.com/routex/routex/internal/transform"
)

// File is the top-level shape of a routex.yaml bootstrap file.
type File struct {
	Channels     []ChannelSpec `yaml:"channels"`
	Rules        []RuleSpec    `yaml:"rules"`
	Transformers []string      `yaml:"transformers"`
	Presets      []string      `yaml:"presets"`
}

// ChannelSpec is the YAML shape of one upstream channel.
type ChannelSpec struct {
	ID         int64    `yaml:"id"`
	Name       string   `yaml:"name"`
	Provider   string   `yaml:"provider"`
	BaseURL    string   `yaml:"baseUrl"`
	Credential string   `yaml:"credential"`
	Models     []string `yaml:"models"`
	Priority   int      `yaml:"priority"`
	Weight     float64  `yaml:"weight"`
}

// RuleSpec is the YAML shape of one routing rule. Condition is a small
// flat set of clauses; it covers the common cases an operator reaches for
// in a bootstrap file without requiring them to hand-author Go.
type RuleSpec struct {
	Name          string   `yaml:"name"`
	Priority      int      `yaml:"priority"`
	Enabled       *bool    `yaml:"enabled"`
	TargetChannel string   `yaml:"targetChannel"`
	TargetModel   string   `yaml:"targetModel"`
	Keywords      []string `yaml:"keywords"`
	MinTokens     int      `yaml:"minTokens"`
	ModelPattern  string   `yaml:"modelPattern"`
	HasTools      *bool    `yaml:"hasTools"`
	HasImages     *bool    `yaml:"hasImages"`
}

// Load reads and parses a bootstrap file from path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bootstrap file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse bootstrap file: %w", err)
	}
	return &f, nil
}

// LiveChannels converts the parsed channel specs into live
// channelset.Channel values ready to be added to a registry.
func (f *File) LiveChannels() []*channelset.Channel {
	out := make([]*channelset.Channel, 0, len(f.Channels))
	for _, cs := range f.Channels {
		ch := channelset.New(cs.ID, cs.Name, channelset.ProviderKind(cs.Provider))
		ch.BaseURL = cs.BaseURL
		ch.Credential = cs.Credential
		ch.SupportedModels = cs.Models
		if cs.Priority != 0 {
			ch.Priority = cs.Priority
		}
		if cs.Weight != 0 {
			ch.Weight = cs.Weight
		}
		out = append(out, ch)
	}
	return out
}

// BuildRules converts the parsed rule specs into rules.Rule values,
// building a Condition out of whichever clauses were populated. A
// malformed modelPattern regex fails the whole load rather than silently
// dropping the clause.
func (f *File) BuildRules() ([]rules.Rule, error) {
	out := make([]rules.Rule, 0, len(f.Rules))
	for i, rs := range f.Rules {
		var clauses []rules.Predicate
		if len(rs.Keywords) > 0 {
			clauses = append(clauses, rules.Keywords{Words: rs.Keywords})
		}
		if rs.MinTokens > 0 {
			clauses = append(clauses, rules.TokenThreshold{Threshold: rs.MinTokens})
		}
		if rs.ModelPattern != "" {
			re, err := regexp.Compile(rs.ModelPattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid modelPattern: %w", rs.Name, err)
			}
			clauses = append(clauses, rules.ModelPattern{Pattern: re})
		}
		if rs.HasTools != nil {
			clauses = append(clauses, rules.HasTools{Want: *rs.HasTools})
		}
		if rs.HasImages != nil {
			clauses = append(clauses, rules.HasImages{Want: *rs.HasImages})
		}

		enabled := true
		if rs.Enabled != nil {
			enabled = *rs.Enabled
		}

		out = append(out, rules.Rule{
			ID:            int64(i + 1),
			Name:          rs.Name,
			Priority:      rs.Priority,
			Enabled:       enabled,
			Condition:     rules.Condition{Predicates: clauses},
			TargetChannel: rs.TargetChannel,
			TargetModel:   rs.TargetModel,
		})
	}
	return out
}

// TransformSpecs turns the bootstrap file's transformer/preset names into a
// concrete pipeline spec list; names are not checked against a registry here.
func (f *File) TransformSpecs() []transform.Spec {
	var specs []transform.Spec
	for _, name := range f.Transformers {
		specs = append(specs, transform.Spec{Name: name})
	}
	if len(f.Presets) > 0 {
		specs = append(transform.Compose(f.Presets), specs...)
	}
	return specs
}
