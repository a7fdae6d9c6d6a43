package risk

// Graph is the directed call graph rooted at the assessed contract. The root
// node is always present, even with zero dependents. Edges are observed calls
// from the root; the engine never assumes acyclicity.
type Graph struct {
	root  string
	nodes map[string]*Node
	edges map[string][]string
}

// Node is one contract in the call graph
type Node struct {
	Address string
	Audited bool
}

// NewGraph creates a call graph with the given root node
func NewGraph(root string, rootAudited bool) *Graph {
	g := &Graph{
		root:  root,
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
	g.AddNode(root, rootAudited)
	return g
}

// Root returns the root contract address
func (g *Graph) Root() string {
	return g.root
}

// AddNode inserts or updates a contract node
func (g *Graph) AddNode(address string, audited bool) {
	if n, ok := g.nodes[address]; ok {
		n.Audited = n.Audited || audited
		return
	}
	g.nodes[address] = &Node{Address: address, Audited: audited}
}

// AddEdge records an observed call, creating missing nodes as unaudited
func (g *Graph) AddEdge(from, to string) {
	if _, ok := g.nodes[from]; !ok {
		g.AddNode(from, false)
	}
	if _, ok := g.nodes[to]; !ok {
		g.AddNode(to, false)
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Node returns the node for an address, or nil
func (g *Graph) Node(address string) *Node {
	return g.nodes[address]
}

// Dependents returns every non-root node
func (g *Graph) Dependents() []*Node {
	deps := make([]*Node, 0, len(g.nodes)-1)
	for addr, n := range g.nodes {
		if addr == g.root {
			continue
		}
		deps = append(deps, n)
	}
	return deps
}

// Addresses returns all node addresses, root first
func (g *Graph) Addresses() []string {
	out := make([]string, 0, len(g.nodes))
	out = append(out, g.root)
	for addr := range g.nodes {
		if addr != g.root {
			out = append(out, addr)
		}
	}
	return out
}

// Size returns the node count
func (g *Graph) Size() int {
	return len(g.nodes)
}
