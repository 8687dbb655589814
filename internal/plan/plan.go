// Package plan reads YAML plan files that describe an operation graph: the
// literal inputs it starts from, the nodes built on them and the outputs to
// materialize.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/leapds/pkg/script"
	"gopkg.in/yaml.v3"
)

// Plan is a parsed plan file.
type Plan struct {
	Inputs  map[string]Input `yaml:"inputs"`
	Nodes   []Node           `yaml:"nodes"`
	Outputs []string         `yaml:"outputs"`
}

// Input is a literal loaded on the host. Exactly one field is set.
type Input struct {
	// CSV is a path to a CSV file with a header row, relative to the plan
	CSV string `yaml:"csv,omitempty"`
	// Query is run against the configured source
	Query string `yaml:"query,omitempty"`
	// String is a string constant
	String *string `yaml:"string,omitempty"`
}

// Node is one operation of the plan.
type Node struct {
	Name string   `yaml:"name"`
	Op   string   `yaml:"op"`
	Args []string `yaml:"args"`

	Indices     []int          `yaml:"indices,omitempty"`
	Start       *int           `yaml:"start,omitempty"`
	Stop        *int           `yaml:"stop,omitempty"`
	Pattern     string         `yaml:"pattern,omitempty"`
	Replacement string         `yaml:"replacement,omitempty"`
	Value       *float64       `yaml:"value,omitempty"`
	Options     map[string]any `yaml:"options,omitempty"`
}

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path) //nolint:gosec // plan path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a plan. Unknown fields are rejected.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("plan is empty")
		}
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks names, references and output declarations. Operation
// arguments are checked when the plan is built.
func (p *Plan) Validate() error {
	defined := make(map[string]bool, len(p.Inputs)+len(p.Nodes))

	for name, in := range p.Inputs {
		if !script.IsIdentifier(name) {
			return fmt.Errorf("input %q: invalid name", name)
		}
		set := 0
		if in.CSV != "" {
			set++
		}
		if in.Query != "" {
			set++
		}
		if in.String != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("input %q: exactly one of csv, query or string is required", name)
		}
		defined[name] = true
	}

	for i, n := range p.Nodes {
		if !script.IsIdentifier(n.Name) {
			return fmt.Errorf("node %d: invalid name %q", i, n.Name)
		}
		if defined[n.Name] {
			return fmt.Errorf("node %q: duplicate name", n.Name)
		}
		if n.Op == "" {
			return fmt.Errorf("node %q: op is required", n.Name)
		}
		for _, a := range n.Args {
			base, _, err := splitRef(a)
			if err != nil {
				return fmt.Errorf("node %q: %w", n.Name, err)
			}
			if !defined[base] {
				return fmt.Errorf("node %q: unknown reference %q", n.Name, a)
			}
		}
		defined[n.Name] = true
	}

	if len(p.Outputs) == 0 {
		return fmt.Errorf("plan declares no outputs")
	}
	for _, out := range p.Outputs {
		base, _, err := splitRef(out)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if !defined[base] {
			return fmt.Errorf("output %q: unknown reference", out)
		}
	}
	return nil
}
