package risk

import "testing"

func TestGraph(t *testing.T) {
	t.Run("root always present", func(t *testing.T) {
		g := NewGraph("0xroot", false)
		if g.Size() != 1 {
			t.Fatalf("expected 1 node, got %d", g.Size())
		}
		if g.Node("0xroot") == nil {
			t.Fatal("root node missing")
		}
		if len(g.Dependents()) != 0 {
			t.Errorf("expected no dependents, got %d", len(g.Dependents()))
		}
	})

	t.Run("edges deduplicate", func(t *testing.T) {
		g := NewGraph("0xroot", false)
		g.AddEdge("0xroot", "0xa")
		g.AddEdge("0xroot", "0xa")
		g.AddEdge("0xroot", "0xb")

		if g.Size() != 3 {
			t.Errorf("expected 3 nodes, got %d", g.Size())
		}
		if len(g.edges["0xroot"]) != 2 {
			t.Errorf("expected 2 edges, got %d", len(g.edges["0xroot"]))
		}
	})

	t.Run("audited flag is sticky", func(t *testing.T) {
		g := NewGraph("0xroot", false)
		g.AddNode("0xa", true)
		g.AddNode("0xa", false)
		if !g.Node("0xa").Audited {
			t.Error("audited flag should not be cleared")
		}
	})

	t.Run("cycles do not break traversal", func(t *testing.T) {
		g := NewGraph("0xroot", false)
		g.AddEdge("0xroot", "0xa")
		g.AddEdge("0xa", "0xroot")

		if g.Size() != 2 {
			t.Errorf("expected 2 nodes, got %d", g.Size())
		}
		if len(g.Dependents()) != 1 {
			t.Errorf("expected 1 dependent, got %d", len(g.Dependents()))
		}
	})

	t.Run("addresses list root first", func(t *testing.T) {
		g := NewGraph("0xroot", false)
		g.AddEdge("0xroot", "0xa")
		addrs := g.Addresses()
		if addrs[0] != "0xroot" {
			t.Errorf("expected root first, got %v", addrs)
		}
		if len(addrs) != 2 {
			t.Errorf("expected 2 addresses, got %v", addrs)
		}
	})
}
