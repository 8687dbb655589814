package script

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapds/internal/dag"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// Binding is host literal data that must be bound to the script under Name
// before execution. Value is a *core.Frame or a *core.Matrix owned by the
// literal node; it is shared, not copied.
type Binding struct {
	Name     string
	DataType core.DataType
	Value    any
	Reuse    bool
}

// Script is the result of one generation: statements in dependency order,
// the literal bindings they read, and the variable names of the requested
// outputs. A Script is never reused across materializing calls.
type Script struct {
	Lines  []string
	Inputs []Binding

	outputs     map[Node][]string
	outputOrder []string
	graph       *dag.Graph
}

// String returns the script text, one statement per line.
func (s *Script) String() string {
	return strings.Join(s.Lines, "\n")
}

// OutputNames returns the variable names generated for a requested output
// node. A multi-return node has one name per output slot.
func (s *Script) OutputNames(n Node) []string {
	return s.outputs[n]
}

// Outputs returns all requested output variable names in request order.
func (s *Script) Outputs() []string {
	return s.outputOrder
}

// Levels groups statement names into execution levels: a statement only
// reads results from lower levels.
func (s *Script) Levels() ([][]string, error) {
	return s.graph.GetExecutionLevels()
}

// Size returns the number of statements and of dependencies between them.
func (s *Script) Size() (statements, edges int) {
	return s.graph.NodeCount(), s.graph.EdgeCount()
}

// Upstream returns the statements needed to compute the statement name,
// in script order, ending with the statement itself.
func (s *Script) Upstream(name string) ([]string, bool) {
	if _, ok := s.graph.GetNode(name); !ok {
		return nil, false
	}
	ids := append(s.graph.GetUpstreamNodes(name), name)
	lines := make([]string, len(ids))
	for i, id := range ids {
		n, _ := s.graph.GetNode(id)
		lines[i] = n.Data
	}
	return lines, true
}

// Statement returns the statement that assigns name.
func (s *Script) Statement(name string) (string, bool) {
	n, ok := s.graph.GetNode(name)
	if !ok {
		return "", false
	}
	return n.Data, true
}

// Generate lowers the graph reachable from outputs into a script.
//
// The walk is depth-first and memoized by node identity, so a node shared
// by several consumers is emitted once. Names are assigned when a node is
// first reached; its statement is appended after all of its operands.
// Generation keeps no state between calls and is deterministic for a given
// graph shape.
func Generate(outputs ...Node) (*Script, error) {
	if len(outputs) == 0 {
		return nil, &core.IllegalStateError{Msg: "no outputs requested"}
	}

	g := &generator{
		names:    make(map[Node]string),
		stmt:     make(map[Node]string),
		visiting: make(map[Node]bool),
		graph:    dag.NewGraph(),
	}
	s := &Script{outputs: make(map[Node][]string)}

	for _, out := range outputs {
		name, err := g.visit(out)
		if err != nil {
			return nil, err
		}
		var names []string
		if m, ok := out.Expr().(*Multi); ok {
			for i := range m.Outputs {
				names = append(names, SlotName(name, i))
			}
		} else {
			names = []string{name}
		}
		if _, seen := s.outputs[out]; !seen {
			s.outputOrder = append(s.outputOrder, names...)
		}
		s.outputs[out] = names
	}

	s.Lines = g.lines
	s.Inputs = g.inputs
	s.graph = g.graph
	return s, nil
}

type generator struct {
	next     int
	names    map[Node]string // variable name per node
	stmt     map[Node]string // name of the statement that defines the node
	visiting map[Node]bool
	lines    []string
	inputs   []Binding
	graph    *dag.Graph
}

func (g *generator) visit(n Node) (string, error) {
	if isNil(n) {
		return "", &core.IllegalStateError{Msg: "missing node operand"}
	}
	if g.visiting[n] {
		return "", &core.IllegalStateError{Msg: "operation graph contains a cycle"}
	}
	if name, ok := g.names[n]; ok {
		return name, nil
	}

	e := n.Expr()
	if isNil(e) {
		return "", &core.IllegalStateError{Msg: "node has no expression"}
	}
	if slot, ok := e.(*Slot); ok {
		return g.visitSlot(n, slot)
	}
	if err := validate(e); err != nil {
		return "", err
	}

	g.visiting[n] = true
	defer delete(g.visiting, n)

	name := fmt.Sprintf("V%d", g.next)
	g.next++
	g.names[n] = name

	rawArgs, rawParams := e.operands()
	var deps []string

	args := make([]string, len(rawArgs))
	for i, a := range rawArgs {
		s, dep, err := g.resolve(a)
		if err != nil {
			return "", err
		}
		args[i] = s
		if dep != "" {
			deps = append(deps, dep)
		}
	}
	params := make([]Arg, len(rawParams))
	for i, p := range rawParams {
		s, dep, err := g.resolve(p.Value)
		if err != nil {
			return "", fmt.Errorf("operand %s: %w", p.Name, err)
		}
		params[i] = Arg{Name: p.Name, Value: s}
		if dep != "" {
			deps = append(deps, dep)
		}
	}

	line := e.codeLine(name, args, params)
	g.lines = append(g.lines, line)
	g.stmt[n] = name
	g.graph.AddNode(name, line)
	for _, dep := range deps {
		if err := g.graph.AddEdge(dep, name); err != nil {
			return "", &core.IllegalStateError{Msg: err.Error()}
		}
	}

	if in, ok := e.(*Input); ok {
		g.inputs = append(g.inputs, Binding{Name: name, DataType: in.DataType, Value: in.Value, Reuse: true})
	}
	return name, nil
}

// visitSlot resolves an output slot to its owner's slot variable. The
// owner emits the only statement.
func (g *generator) visitSlot(n Node, slot *Slot) (string, error) {
	if isNil(slot.Owner) {
		return "", &core.IllegalStateError{Msg: "multi-return output is not attached to an operation"}
	}
	m, ok := slot.Owner.Expr().(*Multi)
	if !ok {
		return "", &core.IllegalStateError{Msg: "output slot owner is not a multi-return operation"}
	}
	if slot.Index < 0 || slot.Index >= len(m.Outputs) {
		return "", &core.IllegalStateError{Msg: fmt.Sprintf("output slot %d out of range [0, %d)", slot.Index, len(m.Outputs))}
	}

	owner, err := g.visit(slot.Owner)
	if err != nil {
		return "", err
	}
	name := SlotName(owner, slot.Index)
	g.names[n] = name
	g.stmt[n] = g.stmt[slot.Owner]
	return name, nil
}

// resolve renders an operand and returns the statement it depends on, if any.
func (g *generator) resolve(v any) (string, string, error) {
	switch x := v.(type) {
	case nil:
		return "", "", &core.IllegalStateError{Msg: "missing operand"}
	case Node:
		name, err := g.visit(x)
		if err != nil {
			return "", "", err
		}
		return name, g.stmt[x], nil
	case string:
		return x, "", nil
	case int:
		return strconv.Itoa(x), "", nil
	case int32:
		return strconv.FormatInt(int64(x), 10), "", nil
	case int64:
		return strconv.FormatInt(x, 10), "", nil
	case float32:
		return Float(float64(x)), "", nil
	case float64:
		return Float(x), "", nil
	case bool:
		return Bool(x), "", nil
	}
	return "", "", &core.IllegalStateError{Msg: fmt.Sprintf("unsupported operand type %T", v)}
}

func validate(e Expr) error {
	switch x := e.(type) {
	case *Call:
		if x.Op == "" {
			return &core.IllegalStateError{Msg: "operation name is empty"}
		}
	case *Multi:
		if x.Op == "" {
			return &core.IllegalStateError{Msg: "operation name is empty"}
		}
		if len(x.Outputs) == 0 {
			return &core.IllegalStateError{Msg: "multi-return operation " + x.Op + " has no outputs"}
		}
	case *Input:
		if x.Value == nil || isNil(x.Value) {
			return &core.IllegalStateError{Msg: "literal input holds no data"}
		}
	case *Const:
		if x.Literal == "" {
			return &core.IllegalStateError{Msg: "constant has no literal"}
		}
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return rv.IsNil()
	}
	return false
}
