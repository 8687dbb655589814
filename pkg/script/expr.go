// Package script lowers a graph of operation nodes into DML script text.
//
// A node describes how its value is produced through an Expr. The set of
// expression kinds is closed: ordinary calls, bracket subscripts, host
// literal inputs, constants, multi-return calls and the output slots of a
// multi-return call. Generate walks the graph from the requested outputs and
// emits one statement per node in dependency order.
package script

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapds/pkg/core"
)

// Node is a vertex of the lazy operation graph. Node identity is pointer
// identity: two structurally equal nodes are still two statements.
type Node interface {
	Expr() Expr
}

// Expr describes how a node's value is produced.
type Expr interface {
	operands() ([]any, []Param)
	codeLine(name string, args []string, params []Arg) string
}

// Param is a named operand. Value is a Node, a pre-rendered string
// fragment, an integer, a float or a bool.
type Param struct {
	Name  string
	Value any
}

// Arg is a named operand after resolution to script text.
type Arg struct {
	Name  string
	Value string
}

// Call is an ordinary operation: name = op(args, key=value).
type Call struct {
	Op     string
	Args   []any
	Params []Param
}

// Index is a bracket subscript: name = base[slice].
type Index struct {
	Base  Node
	Slice string
}

// Input is host-held literal data that is bound to the script by name
// instead of being written into the script text.
type Input struct {
	DataType core.DataType
	Value    any
}

// Const is a scalar literal already rendered as script text.
type Const struct {
	Literal string
}

// Multi is an operation with several outputs, emitted as a single
// multi-assignment statement.
type Multi struct {
	Op      string
	Args    []any
	Params  []Param
	Outputs []Node
}

// Slot is output Index of the multi-return node Owner. It emits no
// statement of its own.
type Slot struct {
	Owner Node
	Index int
}

var infixOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "^": true, "%%": true, "%/%": true,
	"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true,
	"&": true, "|": true,
}

// IsInfix reports whether op is rendered as a binary infix operator.
func IsInfix(op string) bool {
	return infixOps[op]
}

// SlotName returns the variable name of output i of the multi-return
// statement named owner.
func SlotName(owner string, i int) string {
	return fmt.Sprintf("%s_%d", owner, i)
}

// CodeLine renders the statement for e, assigned to name, given the
// resolved operand names. It returns "" for expressions that emit nothing.
func CodeLine(e Expr, name string, args []string, params []Arg) string {
	return e.codeLine(name, args, params)
}

func (c *Call) operands() ([]any, []Param) { return c.Args, c.Params }

func (c *Call) codeLine(name string, args []string, params []Arg) string {
	if IsInfix(c.Op) && len(args) == 2 && len(params) == 0 {
		return fmt.Sprintf("%s = %s %s %s;", name, args[0], c.Op, args[1])
	}
	return fmt.Sprintf("%s = %s(%s);", name, c.Op, joinArgs(args, params))
}

func (x *Index) operands() ([]any, []Param) { return []any{x.Base, x.Slice}, nil }

func (x *Index) codeLine(name string, args []string, _ []Arg) string {
	return fmt.Sprintf("%s = %s[%s];", name, args[0], args[1])
}

func (in *Input) operands() ([]any, []Param) { return nil, nil }

func (in *Input) codeLine(name string, _ []string, _ []Arg) string {
	return fmt.Sprintf("%s = read(%s, data_type=%s);", name, Quote(name), Quote(strings.ToLower(string(in.DataType))))
}

func (c *Const) operands() ([]any, []Param) { return nil, nil }

func (c *Const) codeLine(name string, _ []string, _ []Arg) string {
	return fmt.Sprintf("%s = %s;", name, c.Literal)
}

func (m *Multi) operands() ([]any, []Param) { return m.Args, m.Params }

func (m *Multi) codeLine(name string, args []string, params []Arg) string {
	outs := make([]string, len(m.Outputs))
	for i := range m.Outputs {
		outs[i] = SlotName(name, i)
	}
	return fmt.Sprintf("[%s] = %s(%s);", strings.Join(outs, ", "), m.Op, joinArgs(args, params))
}

func (s *Slot) operands() ([]any, []Param) { return []any{s.Owner}, nil }

func (s *Slot) codeLine(string, []string, []Arg) string { return "" }

func joinArgs(args []string, params []Arg) string {
	parts := make([]string, 0, len(args)+len(params))
	parts = append(parts, args...)
	for _, p := range params {
		parts = append(parts, p.Name+"="+p.Value)
	}
	return strings.Join(parts, ", ")
}
