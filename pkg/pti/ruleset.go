// Package pti checks TransXChange documents against the publication
// profile rules. Rule sets are data, not code: observations select
// elements with XPath and test them with small boolean expressions over a
// registered function set.
package pti

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules/observations.yaml
var defaultRuleSetYAML []byte

type ServiceType string

const (
	ServiceTypeAll      ServiceType = "ALL"
	ServiceTypeStandard ServiceType = "Standard"
	ServiceTypeFlexible ServiceType = "Flexible"
)

type RuleSet struct {
	Observations []Observation `yaml:"observations"`
}

type Observation struct {
	Number      int         `yaml:"number"`
	Category    string      `yaml:"category"`
	Details     string      `yaml:"details"`
	Severity    string      `yaml:"severity"`
	ServiceType ServiceType `yaml:"service_type"`
	Context     string      `yaml:"context"`
	Rules       []Rule      `yaml:"rules"`
}

type Rule struct {
	Test string `yaml:"test"`
}

// Admits reports whether the observation applies to a document of the
// given flexibility.
func (o *Observation) Admits(flexible bool) bool {
	switch o.ServiceType {
	case ServiceTypeAll, "":
		return true
	case ServiceTypeFlexible:
		return flexible
	case ServiceTypeStandard:
		return !flexible
	}
	return false
}

func LoadRuleSet(reader io.Reader) (*RuleSet, error) {
	var ruleSet RuleSet
	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(&ruleSet); err != nil {
		return nil, fmt.Errorf("decoding rule set: %w", err)
	}

	for i, observation := range ruleSet.Observations {
		if observation.Number == 0 {
			return nil, fmt.Errorf("observation %d has no number", i)
		}
		if observation.Context == "" {
			return nil, fmt.Errorf("observation %d has no context expression", observation.Number)
		}
		if len(observation.Rules) == 0 {
			return nil, fmt.Errorf("observation %d has no rules", observation.Number)
		}
		switch observation.ServiceType {
		case ServiceTypeAll, ServiceTypeStandard, ServiceTypeFlexible, "":
		default:
			return nil, fmt.Errorf("observation %d has unknown service type %q", observation.Number, observation.ServiceType)
		}
	}

	return &ruleSet, nil
}

// DefaultRuleSet returns the bundled observation set.
func DefaultRuleSet() (*RuleSet, error) {
	return LoadRuleSet(strings.NewReader(string(defaultRuleSetYAML)))
}
