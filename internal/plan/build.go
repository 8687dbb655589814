package plan

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapds/pkg/core"
	"github.com/leapstack-labs/leapds/pkg/operator"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentLoads bounds how many inputs load at once.
const maxConcurrentLoads = 4

// Loader loads literal frames for plan inputs. Build may call it from
// several goroutines.
type Loader interface {
	Query(ctx context.Context, query string) (*core.Frame, error)
	LoadCSV(ctx context.Context, path string) (*core.Frame, error)
}

// Output is a node to materialize, labeled for display.
type Output struct {
	Name string
	Node operator.Node
}

// Graph is a built plan.
type Graph struct {
	Outputs []Output
	values  map[string]any
}

// Nodes returns the output nodes in declaration order.
func (g *Graph) Nodes() []operator.Node {
	nodes := make([]operator.Node, len(g.Outputs))
	for i, o := range g.Outputs {
		nodes[i] = o.Node
	}
	return nodes
}

// Build loads the plan inputs and builds its nodes on c. Relative CSV
// paths are resolved against baseDir. loader may be nil when the plan has
// no csv or query inputs.
func (p *Plan) Build(ctx context.Context, c *operator.Context, loader Loader, baseDir string) (*Graph, error) {
	g := &Graph{values: make(map[string]any, len(p.Inputs)+len(p.Nodes))}

	names := make([]string, 0, len(p.Inputs))
	for name := range p.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	// inputs are independent; load them concurrently
	loaded := make([]any, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentLoads)
	for i, name := range names {
		eg.Go(func() error {
			v, err := loadInput(egCtx, c, loader, baseDir, p.Inputs[name])
			if err != nil {
				return fmt.Errorf("input %q: %w", name, err)
			}
			loaded[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for i, name := range names {
		g.values[name] = loaded[i]
	}

	for _, n := range p.Nodes {
		v, err := g.build(c, n)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): %w", n.Name, n.Op, err)
		}
		g.values[n.Name] = v
	}

	for _, ref := range p.Outputs {
		v, err := g.lookup(ref)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", ref, err)
		}
		switch x := v.(type) {
		case *operator.MultiReturn:
			for i, out := range x.Outputs() {
				g.Outputs = append(g.Outputs, Output{Name: ref + "." + strconv.Itoa(i), Node: out})
			}
		case operator.Node:
			g.Outputs = append(g.Outputs, Output{Name: ref, Node: x})
		}
	}
	return g, nil
}

func loadInput(ctx context.Context, c *operator.Context, loader Loader, baseDir string, in Input) (any, error) {
	if in.String != nil {
		return c.String(*in.String), nil
	}
	if loader == nil {
		return nil, fmt.Errorf("no source configured")
	}

	var (
		f   *core.Frame
		err error
	)
	if in.CSV != "" {
		path := in.CSV
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		f, err = loader.LoadCSV(ctx, path)
	} else {
		f, err = loader.Query(ctx, in.Query)
	}
	if err != nil {
		return nil, err
	}
	return c.FromFrame(f)
}

func (g *Graph) build(c *operator.Context, n Node) (any, error) {
	switch n.Op {
	case "rbind", "cbind":
		fs, err := g.frames(n, 2)
		if err != nil {
			return nil, err
		}
		if n.Op == "rbind" {
			return fs[0].Rbind(fs[1]), nil
		}
		return fs[0].Cbind(fs[1]), nil

	case "replace":
		fs, err := g.frames(n, 1)
		if err != nil {
			return nil, err
		}
		return fs[0].Replace(n.Pattern, n.Replacement), nil

	case "to_string":
		fs, err := g.frames(n, 1)
		if err != nil {
			return nil, err
		}
		return fs[0].ToString(n.Options)

	case "nrow", "ncol":
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		v, err := g.lookup(n.Args[0])
		if err != nil {
			return nil, err
		}
		switch x := v.(type) {
		case *operator.Frame:
			if n.Op == "nrow" {
				return x.NRow(), nil
			}
			return x.NCol(), nil
		case *operator.Matrix:
			if n.Op == "nrow" {
				return x.NRow(), nil
			}
			return x.NCol(), nil
		}
		return nil, fmt.Errorf("argument %q must be a frame or matrix", n.Args[0])

	case "rows", "cols":
		fs, err := g.frames(n, 1)
		if err != nil {
			return nil, err
		}
		if n.Op == "rows" {
			return fs[0].Get(operator.List(n.Indices...))
		}
		return fs[0].Get(operator.All(), operator.List(n.Indices...))

	case "slice":
		fs, err := g.frames(n, 1)
		if err != nil {
			return nil, err
		}
		var ax operator.Axis
		switch {
		case n.Start != nil && n.Stop != nil:
			ax = operator.Range(*n.Start, *n.Stop)
		case n.Start != nil:
			ax = operator.From(*n.Start)
		case n.Stop != nil:
			ax = operator.To(*n.Stop)
		default:
			ax = operator.All()
		}
		return fs[0].Get(ax)

	case "transform_encode":
		if err := arity(n, 2); err != nil {
			return nil, err
		}
		f, err := g.frame(n.Args[0])
		if err != nil {
			return nil, err
		}
		spec, err := g.scalar(n.Args[1])
		if err != nil {
			return nil, err
		}
		return f.TransformEncode(spec), nil

	case "transform_apply":
		if err := arity(n, 3); err != nil {
			return nil, err
		}
		f, err := g.frame(n.Args[0])
		if err != nil {
			return nil, err
		}
		spec, err := g.scalar(n.Args[1])
		if err != nil {
			return nil, err
		}
		meta, err := g.frame(n.Args[2])
		if err != nil {
			return nil, err
		}
		return f.TransformApply(spec, meta), nil

	case "as_frame", "sum":
		if err := arity(n, 1); err != nil {
			return nil, err
		}
		m, err := g.matrix(n.Args[0])
		if err != nil {
			return nil, err
		}
		if n.Op == "sum" {
			return m.Sum(), nil
		}
		return m.ToFrame(), nil

	case "add":
		if len(n.Args) == 0 || len(n.Args) > 2 {
			return nil, fmt.Errorf("expects 1 or 2 arguments, got %d", len(n.Args))
		}
		m, err := g.matrix(n.Args[0])
		if err != nil {
			return nil, err
		}
		if len(n.Args) == 2 {
			other, err := g.matrix(n.Args[1])
			if err != nil {
				return nil, err
			}
			return m.Add(other), nil
		}
		if n.Value == nil {
			return nil, fmt.Errorf("add needs a second argument or a value")
		}
		return m.Add(*n.Value), nil
	}
	return nil, fmt.Errorf("unknown op %q", n.Op)
}

func arity(n Node, want int) error {
	if len(n.Args) != want {
		return fmt.Errorf("expects %d argument(s), got %d", want, len(n.Args))
	}
	return nil
}

func (g *Graph) frames(n Node, want int) ([]*operator.Frame, error) {
	if err := arity(n, want); err != nil {
		return nil, err
	}
	out := make([]*operator.Frame, want)
	for i, ref := range n.Args {
		f, err := g.frame(ref)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (g *Graph) frame(ref string) (*operator.Frame, error) {
	v, err := g.lookup(ref)
	if err != nil {
		return nil, err
	}
	f, ok := v.(*operator.Frame)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a frame, got %s", ref, kindOf(v))
	}
	return f, nil
}

func (g *Graph) matrix(ref string) (*operator.Matrix, error) {
	v, err := g.lookup(ref)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*operator.Matrix)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a matrix, got %s", ref, kindOf(v))
	}
	return m, nil
}

func (g *Graph) scalar(ref string) (*operator.Scalar, error) {
	v, err := g.lookup(ref)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*operator.Scalar)
	if !ok {
		return nil, fmt.Errorf("argument %q must be a scalar, got %s", ref, kindOf(v))
	}
	return s, nil
}

// lookup resolves a reference; "name.i" selects output i of a
// multi-return node.
func (g *Graph) lookup(ref string) (any, error) {
	base, idx, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	v, ok := g.values[base]
	if !ok {
		return nil, fmt.Errorf("unknown reference %q", ref)
	}
	if idx < 0 {
		return v, nil
	}
	m, ok := v.(*operator.MultiReturn)
	if !ok {
		return nil, fmt.Errorf("%q has no numbered outputs", base)
	}
	outs := m.Outputs()
	if idx >= len(outs) {
		return nil, fmt.Errorf("%q has %d outputs, index %d requested", base, len(outs), idx)
	}
	return outs[idx], nil
}

func splitRef(ref string) (string, int, error) {
	base, slot, found := strings.Cut(ref, ".")
	if !found {
		return ref, -1, nil
	}
	i, err := strconv.Atoi(slot)
	if err != nil || i < 0 {
		return "", 0, fmt.Errorf("invalid output reference %q", ref)
	}
	return base, i, nil
}

func kindOf(v any) string {
	switch x := v.(type) {
	case *operator.MultiReturn:
		return "multi-return"
	case operator.Node:
		return strings.ToLower(string(x.DataType()))
	}
	return fmt.Sprintf("%T", v)
}
