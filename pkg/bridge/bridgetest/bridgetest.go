// Package bridgetest provides an in-process Bridge for tests.
package bridgetest

import (
	"context"
	"sync"

	"github.com/leapstack-labs/leapds/pkg/bridge"
	"github.com/leapstack-labs/leapds/pkg/core"
)

// HandlerFunc computes the results of one execution.
type HandlerFunc func(req *bridge.Request) (*bridge.ResultSet, error)

// Bridge records every request and answers with Handler.
type Bridge struct {
	Handler HandlerFunc

	mu       sync.Mutex
	requests []*bridge.Request
}

// New returns a recording bridge answering with h.
func New(h HandlerFunc) *Bridge {
	return &Bridge{Handler: h}
}

// Execute implements bridge.Bridge.
func (b *Bridge) Execute(ctx context.Context, req *bridge.Request) (bridge.Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.Handler == nil {
		return bridge.NewResultSet(), nil
	}
	res, err := b.Handler(req)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Calls returns the number of executions so far.
func (b *Bridge) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Requests returns the recorded requests in call order.
func (b *Bridge) Requests() []*bridge.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*bridge.Request(nil), b.requests...)
}

// Last returns the most recent request, or nil.
func (b *Bridge) Last() *bridge.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return nil
	}
	return b.requests[len(b.requests)-1]
}

// Fail returns a handler that always fails with err.
func Fail(err error) HandlerFunc {
	return func(*bridge.Request) (*bridge.ResultSet, error) { return nil, err }
}

// InputFrame returns the frame bound under name, or nil.
func InputFrame(req *bridge.Request, name string) *core.Frame {
	for _, in := range req.Inputs {
		if in.Name == name {
			f, _ := in.Value.(*core.Frame)
			return f
		}
	}
	return nil
}
