package internal

import (
	"log"

	"github.com/Knetic/govaluate"

	"packit-service/pkg/events"
)

// Rule routes events whose Dict satisfies When to the Emit topic.
type Rule struct {
	When    string   `yaml:"when"`
	Emit    string   `yaml:"emit"`
	Drivers []string `yaml:"drivers"`
}

// Match is a topic an event should be published to, optionally restricted
// to a subset of drivers.
type Match struct {
	Topic   string
	Drivers []string
}

type compiledRule struct {
	emit    string
	drivers []string
	expr    *govaluate.EvaluableExpression
}

type RuleEngine struct {
	rules       []compiledRule
	topicPrefix string
	logger      *log.Logger
}

// NewRuleEngine compiles the rule expressions. Events that match no rule are
// routed to "<topicPrefix>.<trigger>".
func NewRuleEngine(cfg RulesConfig, topicPrefix string) (*RuleEngine, error) {
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		expr, err := govaluate.NewEvaluableExpression(rule.When)
		if err != nil {
			return nil, err
		}
		rules = append(rules, compiledRule{emit: rule.Emit, drivers: rule.Drivers, expr: expr})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &RuleEngine{rules: rules, topicPrefix: topicPrefix, logger: logger}, nil
}

// Evaluate returns the topics for an event.
func (r *RuleEngine) Evaluate(evt events.Event) []Match {
	return r.EvaluateWithLogger(evt, r.logger)
}

func (r *RuleEngine) EvaluateWithLogger(evt events.Event, logger *log.Logger) []Match {
	params := evt.Dict()
	matches := make([]Match, 0, 1)
	for _, rule := range r.rules {
		result, err := rule.expr.Evaluate(params)
		if err != nil {
			logger.Printf("rule %q eval failed: %v", rule.emit, err)
			continue
		}
		if ok, _ := result.(bool); ok {
			matches = append(matches, Match{Topic: rule.emit, Drivers: rule.drivers})
		}
	}
	if len(matches) == 0 && r.topicPrefix != "" {
		matches = append(matches, Match{Topic: r.topicPrefix + "." + evt.Trigger().String()})
	}
	return matches
}
