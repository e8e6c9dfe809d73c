package dfg

// SCCs returns the strongly connected components of the graph using Tarjan's
// algorithm. Components come out in reverse topological order; the nodes of a
// component are in the order they were popped.
func (g *Graph) SCCs() [][]*Node {
	return g.tarjan(func(*Node) bool { return true })
}

// tarjan computes the SCCs of the subgraph induced by the nodes accepted by
// keep. Nodes and successors are visited in insertion order so the output is
// deterministic.
func (g *Graph) tarjan(keep func(*Node) bool) [][]*Node {
	var (
		counter int
		stack   []*Node
		comps   [][]*Node
	)

	index := make(map[*Node]int)
	low := make(map[*Node]int)
	onStack := make(map[*Node]bool)

	var connect func(v *Node)
	connect = func(v *Node) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range v.succs {
			if !keep(w) {
				continue
			}

			if _, seen := index[w]; !seen {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}

		var comp []*Node
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		comps = append(comps, comp)
	}

	for _, n := range g.nodes {
		if !keep(n) {
			continue
		}
		if _, seen := index[n]; !seen {
			connect(n)
		}
	}

	return comps
}

// Cycles enumerates the elementary circuits of the graph (Johnson's
// algorithm). Each circuit starts at its lowest-indexed node and is returned
// as the ordered list of its edges.
func (g *Graph) Cycles() [][]Edge {
	var cycles [][]Edge

	for _, s := range g.nodes {
		comp := g.componentOf(s)
		if comp == nil {
			continue
		}

		j := johnson{
			start:   s,
			inComp:  comp,
			blocked: make(map[*Node]bool),
			blockOf: make(map[*Node][]*Node),
		}
		j.circuit(s)

		cycles = append(cycles, j.found...)
	}

	return cycles
}

// componentOf returns the members of the SCC that contains s in the subgraph
// induced by s and every node inserted after it, or nil when s cannot be on a
// circuit in that subgraph.
func (g *Graph) componentOf(s *Node) map[*Node]bool {
	keep := func(n *Node) bool { return n.index >= s.index }

	for _, comp := range g.tarjan(keep) {
		members := make(map[*Node]bool, len(comp))
		hasS := false
		for _, n := range comp {
			members[n] = true
			if n == s {
				hasS = true
			}
		}

		if !hasS {
			continue
		}

		if len(comp) == 1 && !s.IsPredecessorOf(s) {
			return nil
		}

		return members
	}

	return nil
}

type johnson struct {
	start   *Node
	inComp  map[*Node]bool
	blocked map[*Node]bool
	blockOf map[*Node][]*Node
	path    []*Node
	found   [][]Edge
}

func (j *johnson) circuit(v *Node) bool {
	closed := false

	j.path = append(j.path, v)
	j.blocked[v] = true

	for _, w := range v.succs {
		if !j.inComp[w] {
			continue
		}

		if w == j.start {
			j.record()
			closed = true
		} else if !j.blocked[w] && j.circuit(w) {
			closed = true
		}
	}

	if closed {
		j.unblock(v)
	} else {
		for _, w := range v.succs {
			if j.inComp[w] && !contains(j.blockOf[w], v) {
				j.blockOf[w] = append(j.blockOf[w], v)
			}
		}
	}

	j.path = j.path[:len(j.path)-1]

	return closed
}

func (j *johnson) unblock(v *Node) {
	j.blocked[v] = false

	waiting := j.blockOf[v]
	j.blockOf[v] = nil

	for _, w := range waiting {
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

func (j *johnson) record() {
	edges := make([]Edge, len(j.path))
	for i, n := range j.path {
		next := j.start
		if i+1 < len(j.path) {
			next = j.path[i+1]
		}
		edges[i] = Edge{From: n, To: next}
	}

	j.found = append(j.found, edges)
}

func contains(nodes []*Node, n *Node) bool {
	for _, m := range nodes {
		if m == n {
			return true
		}
	}

	return false
}
