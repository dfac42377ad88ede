// Package graph builds the type graph of a GraphQL schema and lays it out
// for drawing.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// ErrUnknownRoot is returned when the requested root type is not in the schema
var ErrUnknownRoot = errors.New("graph: unknown root type")

// Field is a field of a type node
type Field struct {
	ID         string
	Name       string
	TypeName   string // named type after unwrapping lists and non-null
	Signature  string // type as written in the schema, e.g. "[User!]!"
	Args       int
	IsLeaf     bool // scalar or enum
	IsRelay    bool // connection collapsed by SkipRelay
	Deprecated bool
	EdgeID     string // empty for leaf fields
}

// Node is a composite type in the graph
type Node struct {
	ID          string
	Name        string
	Kind        ast.DefinitionKind
	Description string
	Fields      []Field
	Depth       int // distance from the root in edges
}

// EdgeKind distinguishes field references from abstract type membership
type EdgeKind string

const (
	EdgeField    EdgeKind = "field"
	EdgePossible EdgeKind = "possible"
)

// Edge connects two nodes
type Edge struct {
	ID    string
	Kind  EdgeKind
	From  string
	To    string
	Label string
}

// TypeGraph is the graph of types reachable from a root type.
// It is immutable once built; viewports compare graphs by pointer.
type TypeGraph struct {
	RootID      string
	Nodes       []*Node
	Edges       []*Edge
	Fingerprint string

	nodes map[string]*Node
	edges map[string]*Edge
}

// TypeID returns the node id for a type name
func TypeID(name string) string { return "TYPE::" + name }

// FieldID returns the id of a field row
func FieldID(typeName, field string) string { return "FIELD::" + typeName + "::" + field }

// FieldEdgeID returns the id of the edge a field produces
func FieldEdgeID(typeName, field string) string {
	return "FIELD_EDGE::" + typeName + "::" + field
}

// PossibleTypeEdgeID returns the id of an abstract type membership edge
func PossibleTypeEdgeID(typeName, member string) string {
	return "POSSIBLE_TYPE_EDGE::" + typeName + "::" + member
}

// LoadSchema parses and validates SDL
func LoadSchema(name, source string) (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", name, err)
	}
	return schema, nil
}

// Node returns the node with the given id
func (g *TypeGraph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id
func (g *TypeGraph) Edge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Build walks the schema from the root type and returns the reachable graph
func Build(schema *ast.Schema, opts *DisplayOptions) (*TypeGraph, error) {
	if opts == nil {
		opts = DefaultDisplayOptions()
	}

	root := schema.Query
	if opts.RootType != "" {
		root = schema.Types[opts.RootType]
	}
	if root == nil || !isComposite(root) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoot, opts.RootType)
	}

	b := &builder{
		schema: schema,
		opts:   opts,
		graph: &TypeGraph{
			RootID: TypeID(root.Name),
			nodes:  make(map[string]*Node),
			edges:  make(map[string]*Edge),
		},
	}
	b.walk(root)

	if opts.SortByAlphabet {
		sort.SliceStable(b.graph.Nodes, func(i, j int) bool {
			ni, nj := b.graph.Nodes[i], b.graph.Nodes[j]
			if ni.Depth != nj.Depth {
				return ni.Depth < nj.Depth
			}
			return ni.Name < nj.Name
		})
	}
	b.graph.Fingerprint = b.fingerprint()
	return b.graph, nil
}

type builder struct {
	schema *ast.Schema
	opts   *DisplayOptions
	graph  *TypeGraph
}

// walk adds types breadth first so depth is the shortest distance to root
func (b *builder) walk(root *ast.Definition) {
	queue := []*ast.Definition{root}
	b.addNode(root, 0)

	for len(queue) > 0 {
		def := queue[0]
		queue = queue[1:]
		node := b.graph.nodes[TypeID(def.Name)]

		visit := func(target *ast.Definition) {
			if _, seen := b.graph.nodes[TypeID(target.Name)]; seen {
				return
			}
			b.addNode(target, node.Depth+1)
			queue = append(queue, target)
		}

		for _, f := range b.fields(def) {
			if f.EdgeID == "" {
				continue
			}
			target := b.schema.Types[f.TypeName]
			b.addEdge(&Edge{ID: f.EdgeID, Kind: EdgeField, From: node.ID, To: TypeID(target.Name), Label: f.Name})
			visit(target)
		}

		for _, member := range b.possibleTypes(def) {
			b.addEdge(&Edge{
				ID:   PossibleTypeEdgeID(def.Name, member.Name),
				Kind: EdgePossible,
				From: node.ID,
				To:   TypeID(member.Name),
			})
			visit(member)
		}
	}
}

func (b *builder) addNode(def *ast.Definition, depth int) {
	node := &Node{
		ID:          TypeID(def.Name),
		Name:        def.Name,
		Kind:        def.Kind,
		Description: def.Description,
		Depth:       depth,
	}
	node.Fields = b.fields(def)
	b.graph.nodes[node.ID] = node
	b.graph.Nodes = append(b.graph.Nodes, node)
}

func (b *builder) addEdge(e *Edge) {
	if _, dup := b.graph.edges[e.ID]; dup {
		return
	}
	b.graph.edges[e.ID] = e
	b.graph.Edges = append(b.graph.Edges, e)
}

func (b *builder) fields(def *ast.Definition) []Field {
	out := make([]Field, 0, len(def.Fields))
	for _, fd := range def.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		deprecated := fd.Directives.ForName("deprecated") != nil
		if deprecated && b.opts.SkipDeprecated {
			continue
		}

		f := Field{
			ID:         FieldID(def.Name, fd.Name),
			Name:       fd.Name,
			TypeName:   fd.Type.Name(),
			Signature:  fd.Type.String(),
			Args:       len(fd.Arguments),
			Deprecated: deprecated,
		}
		target := b.schema.Types[f.TypeName]
		if b.opts.SkipRelay {
			if node := b.relayNode(target); node != nil {
				target = node
				f.TypeName = node.Name
				f.IsRelay = true
			}
		}
		if target == nil || !isComposite(target) {
			f.IsLeaf = true
		} else {
			f.EdgeID = FieldEdgeID(def.Name, fd.Name)
		}
		out = append(out, f)
	}

	if b.opts.SortByAlphabet {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out
}

// relayNode returns the node type of a Relay connection, or nil when def is
// not a connection.
func (b *builder) relayNode(def *ast.Definition) *ast.Definition {
	if def == nil || !strings.HasSuffix(def.Name, "Connection") {
		return nil
	}
	edges := def.Fields.ForName("edges")
	if edges == nil {
		return nil
	}
	edgeDef := b.schema.Types[edges.Type.Name()]
	if edgeDef == nil {
		return nil
	}
	node := edgeDef.Fields.ForName("node")
	if node == nil {
		return nil
	}
	return b.schema.Types[node.Type.Name()]
}

func (b *builder) possibleTypes(def *ast.Definition) []*ast.Definition {
	if def.Kind != ast.Interface && def.Kind != ast.Union {
		return nil
	}
	members := append([]*ast.Definition(nil), b.schema.PossibleTypes[def.Name]...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

func (b *builder) fingerprint() string {
	h := sha256.New()
	for _, n := range b.graph.Nodes {
		fmt.Fprintf(h, "%s|", n.ID)
		for _, f := range n.Fields {
			fmt.Fprintf(h, "%s:%s:%t,", f.Name, f.Signature, f.IsRelay)
		}
	}
	for _, e := range b.graph.Edges {
		fmt.Fprintf(h, "%s>%s|", e.ID, e.To)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func isComposite(def *ast.Definition) bool {
	switch def.Kind {
	case ast.Object, ast.Interface, ast.Union, ast.InputObject:
		return !def.BuiltIn
	}
	return false
}
