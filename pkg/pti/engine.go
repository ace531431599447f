package pti

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
)

const maxElementText = 512

// Document is a parsed TransXChange file ready for rule evaluation. It
// keeps element line numbers, which xmlquery does not track, by replaying
// the token stream over the same bytes.
type Document struct {
	Root     *xmlquery.Node
	Filename string
	Flexible bool

	ServiceRef string

	lines    map[*xmlquery.Node]int
	stopRefs map[string]struct{}
}

func ParseDocument(reader io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	doc := &Document{
		Root:     root,
		Filename: filename,
		lines:    elementLines(root, data),
		stopRefs: map[string]struct{}{},
	}

	doc.Flexible = xmlquery.FindOne(root, "//Service/FlexibleService") != nil ||
		xmlquery.FindOne(root, "//Service/ServiceClassification/Flexible") != nil

	if serviceCode := xmlquery.FindOne(root, "//Service/ServiceCode"); serviceCode != nil {
		doc.ServiceRef = strings.TrimSpace(serviceCode.InnerText())
	}

	for _, ref := range xmlquery.Find(root, "//AnnotatedStopPointRef/StopPointRef") {
		doc.stopRefs[strings.TrimSpace(ref.InnerText())] = struct{}{}
	}
	for _, ref := range xmlquery.Find(root, "//StopPoints/StopPoint/AtcoCode") {
		doc.stopRefs[strings.TrimSpace(ref.InnerText())] = struct{}{}
	}

	return doc, nil
}

// Line returns the 1-based source line of an element, or 0 when unknown.
func (d *Document) Line(node *xmlquery.Node) int {
	return d.lines[node]
}

// elementLines pairs every element node with its source line. xmlquery
// walks elements in document order and so does the decoder, so the n-th
// start element corresponds to the n-th element node.
func elementLines(root *xmlquery.Node, data []byte) map[*xmlquery.Node]int {
	var elements []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(node *xmlquery.Node) {
		if node.Type == xmlquery.ElementNode {
			elements = append(elements, node)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	lines := make(map[*xmlquery.Node]int, len(elements))
	decoder := xml.NewDecoder(bytes.NewReader(data))
	index := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		if _, ok := token.(xml.StartElement); !ok {
			continue
		}
		if index >= len(elements) {
			break
		}
		lines[elements[index]] = 1 + bytes.Count(data[:decoder.InputOffset()], []byte("\n"))
		index++
	}

	return lines
}

type compiledObservation struct {
	observation Observation
	rules       []*vm.Program
}

// Engine evaluates a compiled rule set against documents. Safe for reuse
// across files; Check itself is single-threaded.
type Engine struct {
	observations []compiledObservation
	regions      RegionChecker
}

// NewEngine compiles every rule up front so a malformed expression fails
// at startup rather than per file.
func NewEngine(ruleSet *RuleSet, regions RegionChecker) (*Engine, error) {
	engine := &Engine{regions: regions}

	for _, observation := range ruleSet.Observations {
		compiled := compiledObservation{observation: observation}

		for _, rule := range observation.Rules {
			program, err := expr.Compile(rule.Test, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("observation %d rule %q: %w", observation.Number, rule.Test, err)
			}
			compiled.rules = append(compiled.rules, program)
		}

		engine.observations = append(engine.observations, compiled)
	}

	return engine, nil
}

// Check runs every admitted observation over the document and returns the
// full violation list. A failing rule never halts evaluation.
func (e *Engine) Check(ctx context.Context, doc *Document) ([]Violation, error) {
	violations := []Violation{}

	for _, compiled := range e.observations {
		observation := compiled.observation

		if !observation.Admits(doc.Flexible) {
			continue
		}

		contextNodes, err := xmlquery.QueryAll(doc.Root, observation.Context)
		if err != nil {
			return nil, fmt.Errorf("observation %d context %q: %w", observation.Number, observation.Context, err)
		}

		for _, node := range contextNodes {
			env := e.ruleEnv(ctx, doc, node)

			for ruleIndex, program := range compiled.rules {
				passed, err := runRule(program, env)
				if err != nil {
					log.Error().Int("observation", observation.Number).Int("rule", ruleIndex).Err(err).Msg("Rule evaluation failed")
					continue
				}

				if !passed {
					violations = append(violations, violation(observation, doc, node))
					break
				}
			}
		}
	}

	return violations, nil
}

func runRule(program *vm.Program, env map[string]any) (bool, error) {
	output, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	passed, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("rule returned %T, want bool", output)
	}
	return passed, nil
}

func violation(observation Observation, doc *Document, node *xmlquery.Node) Violation {
	severity := observation.Severity
	if severity == "" {
		severity = "observation"
	}

	text := strings.TrimSpace(node.InnerText())
	if len(text) > maxElementText {
		text = text[:maxElementText]
	}

	return Violation{
		ObservationNumber: observation.Number,
		Category:          observation.Category,
		Details:           observation.Details,
		Severity:          severity,
		Line:              doc.Line(node),
		ElementName:       node.Data,
		ElementText:       text,
		Filename:          doc.Filename,
	}
}
