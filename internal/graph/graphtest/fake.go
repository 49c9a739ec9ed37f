// Package graphtest provides an in-memory graph.Driver that interprets the
// materializer and reader templates, keyed exactly like MERGE.
package graphtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rohankatakam/graphbridge/internal/graph"
)

// ErrUnreachable is returned by OpenSession when the driver is marked unreachable
var ErrUnreachable = errors.New("graphtest: server unreachable")

// Call records one Session.Run
type Call struct {
	Query     string
	Params    map[string]any
	Mode      graph.RoutingMode
	Operation string
}

// EdgeKey identifies an edge the way MERGE does
type EdgeKey struct {
	Source string
	Target string
}

// Driver is an in-memory graph.Driver
type Driver struct {
	mu sync.Mutex

	nodeOrder []string
	nodes     map[string]map[string]any
	edgeOrder []EdgeKey
	edges     map[EdgeKey]map[string]any

	calls    []Call
	sessions int
	open     int

	// Unreachable makes OpenSession and VerifyConnectivity fail
	Unreachable bool
	// FailOnWrite fails the n-th write batch (1-based, constraint creation excluded); 0 disables
	FailOnWrite int
	writes      int
}

// NewDriver creates an empty in-memory graph
func NewDriver() *Driver {
	return &Driver{
		nodes: make(map[string]map[string]any),
		edges: make(map[EdgeKey]map[string]any),
	}
}

// OpenSession implements graph.Driver
func (d *Driver) OpenSession(ctx context.Context, database string, mode graph.RoutingMode) (graph.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Unreachable {
		return nil, ErrUnreachable
	}
	d.sessions++
	d.open++
	return &session{driver: d, mode: mode}, nil
}

// VerifyConnectivity implements graph.Driver
func (d *Driver) VerifyConnectivity(ctx context.Context) error {
	if d.Unreachable {
		return ErrUnreachable
	}
	return nil
}

// Close implements graph.Driver
func (d *Driver) Close(ctx context.Context) error { return nil }

// Calls returns the recorded Run calls
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// WriteCalls returns the recorded batch merges
func (d *Driver) WriteCalls() []Call {
	var out []Call
	for _, c := range d.Calls() {
		if c.Operation == graph.OpEntityMerge || c.Operation == graph.OpRelationshipMerge {
			out = append(out, c)
		}
	}
	return out
}

// OpenSessions is the number of sessions not yet closed
func (d *Driver) OpenSessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Node returns a copy of the properties stored on the node with title
func (d *Driver) Node(title string) (map[string]any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[title]
	return copyProps(n), ok
}

// Edge returns a copy of the properties stored on the edge source->target
func (d *Driver) Edge(source, target string) (map[string]any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.edges[EdgeKey{source, target}]
	return copyProps(e), ok
}

// NodeCount is the number of distinct nodes
func (d *Driver) NodeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.nodes)
}

// EdgeCount is the number of distinct edges
func (d *Driver) EdgeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.edges)
}

// PutNode stores a node directly, bypassing the templates
func (d *Driver) PutNode(title string, props map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.mergeNode(title)
	for k, v := range props {
		n[k] = v
	}
}

// PutEdge stores an edge directly, creating its endpoints
func (d *Driver) PutEdge(source, target string, props map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.mergeEdge(source, target)
	for k, v := range props {
		e[k] = v
	}
}

func (d *Driver) mergeNode(title string) map[string]any {
	n, ok := d.nodes[title]
	if !ok {
		n = map[string]any{"title": title}
		d.nodes[title] = n
		d.nodeOrder = append(d.nodeOrder, title)
	}
	return n
}

func (d *Driver) mergeEdge(source, target string) map[string]any {
	d.mergeNode(source)
	d.mergeNode(target)
	key := EdgeKey{source, target}
	e, ok := d.edges[key]
	if !ok {
		e = map[string]any{}
		d.edges[key] = e
		d.edgeOrder = append(d.edgeOrder, key)
	}
	return e
}

type session struct {
	driver *Driver
	mode   graph.RoutingMode
	closed bool
}

func (s *session) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	d := s.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, Call{
		Query:     query,
		Params:    params,
		Mode:      s.mode,
		Operation: graph.OperationFrom(ctx),
	})

	switch {
	case strings.HasPrefix(query, "CREATE CONSTRAINT"):
		return nil, nil

	case strings.HasPrefix(query, "UNWIND"):
		d.writes++
		if d.FailOnWrite > 0 && d.writes == d.FailOnWrite {
			return nil, errors.New("graphtest: injected write failure")
		}
		rows, _ := params["rows"].([]map[string]any)
		relationship := strings.Contains(query, "]->(")
		for _, row := range rows {
			if relationship {
				e := d.mergeEdge(row["source"].(string), row["target"].(string))
				setProps(e, row, "source", "target")
			} else {
				n := d.mergeNode(row["title"].(string))
				setProps(n, row, "title")
			}
		}
		return nil, nil

	case strings.Contains(query, "RETURN properties(n) AS props"):
		out := make([]map[string]any, 0, len(d.nodeOrder))
		for _, title := range d.nodeOrder {
			out = append(out, map[string]any{"props": copyProps(d.nodes[title])})
		}
		return out, nil

	case strings.Contains(query, "RETURN s.title AS source"):
		out := make([]map[string]any, 0, len(d.edgeOrder))
		for _, key := range d.edgeOrder {
			out = append(out, map[string]any{
				"source": key.Source,
				"target": key.Target,
				"type":   graph.RelationshipType,
				"props":  copyProps(d.edges[key]),
			})
		}
		return out, nil

	case strings.Contains(query, "count(r) AS edges"):
		return []map[string]any{{
			"nodes": int64(len(d.nodes)),
			"edges": int64(len(d.edges)),
		}}, nil
	}

	return nil, errors.New("graphtest: unsupported query: " + query)
}

func (s *session) Close(ctx context.Context) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.driver.open--
	}
	return nil
}

// setProps applies coalesce semantics: keys absent from row keep their stored value
func setProps(dst, row map[string]any, keys ...string) {
	for k, v := range row {
		skip := false
		for _, key := range keys {
			if k == key {
				skip = true
				break
			}
		}
		if !skip && v != nil {
			dst[k] = v
		}
	}
}

func copyProps(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
