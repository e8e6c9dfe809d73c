// Package dfg defines the dataflow graph that is mapped onto a CGRA.
package dfg

import "fmt"

// Node is one operation of the dataflow graph.
type Node struct {
	ID     int
	Opcode string

	IsLoad    bool
	IsStore   bool
	IsBranch  bool
	IsCompare bool

	index int
	preds []*Node
	succs []*Node
}

// Preds returns the producers of the node, in the order they were connected.
func (n *Node) Preds() []*Node {
	return n.preds
}

// Succs returns the consumers of the node, in the order they were connected.
func (n *Node) Succs() []*Node {
	return n.succs
}

// FanOut is the number of consumers of the node.
func (n *Node) FanOut() int {
	return len(n.succs)
}

// IsPredecessorOf tells if the node directly feeds other.
func (n *Node) IsPredecessorOf(other *Node) bool {
	for _, s := range n.succs {
		if s == other {
			return true
		}
	}

	return false
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%d)", n.Opcode, n.ID)
}

// Edge is a data dependence from a producer to a consumer.
type Edge struct {
	From *Node
	To   *Node
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.From.ID, e.To.ID)
}

// Graph owns the nodes of a dataflow graph.
type Graph struct {
	nodes []*Node
	byID  map[int]*Node

	dfsOrder []*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byID: make(map[int]*Node),
	}
}

// AddNode creates a node. Node IDs must be unique.
func (g *Graph) AddNode(id int, opcode string) *Node {
	if _, found := g.byID[id]; found {
		panic(fmt.Sprintf("dfg node %d already exists", id))
	}

	n := &Node{ID: id, Opcode: opcode, index: len(g.nodes)}
	g.nodes = append(g.nodes, n)
	g.byID[id] = n
	g.dfsOrder = nil

	return n
}

// Connect adds a dependence from the node with ID from to the node with ID to.
// Connecting the same pair twice has no effect.
func (g *Graph) Connect(from, to int) {
	src := g.mustNode(from)
	dst := g.mustNode(to)

	if src.IsPredecessorOf(dst) {
		return
	}

	src.succs = append(src.succs, dst)
	dst.preds = append(dst.preds, src)
	g.dfsOrder = nil
}

func (g *Graph) mustNode(id int) *Node {
	n, found := g.byID[id]
	if !found {
		panic(fmt.Sprintf("dfg node %d does not exist", id))
	}

	return n
}

// Node returns the node with the given ID.
func (g *Graph) Node(id int) (*Node, bool) {
	n, found := g.byID[id]
	return n, found
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// NodeCount returns the number of operations.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Edges lists all dependences, ordered by producer and then by consumer
// connection order.
func (g *Graph) Edges() []Edge {
	var edges []Edge

	for _, n := range g.nodes {
		for _, s := range n.succs {
			edges = append(edges, Edge{From: n, To: s})
		}
	}

	return edges
}

// DFSOrder returns the nodes in the reverse postorder of a depth-first walk
// that starts from the source nodes (no predecessors) and then from any node
// left unvisited. On an acyclic graph every producer comes before its
// consumers. The order is computed once and cached.
func (g *Graph) DFSOrder() []*Node {
	if g.dfsOrder != nil {
		return g.dfsOrder
	}

	visited := make([]bool, len(g.nodes))
	post := make([]*Node, 0, len(g.nodes))

	var walk func(n *Node)
	walk = func(n *Node) {
		visited[n.index] = true
		for _, s := range n.succs {
			if !visited[s.index] {
				walk(s)
			}
		}
		post = append(post, n)
	}

	for _, n := range g.nodes {
		if len(n.preds) == 0 && !visited[n.index] {
			walk(n)
		}
	}

	// Nodes only reachable through a cycle.
	for _, n := range g.nodes {
		if !visited[n.index] {
			walk(n)
		}
	}

	order := make([]*Node, len(post))
	for i, n := range post {
		order[len(post)-1-i] = n
	}

	g.dfsOrder = order

	return order
}
