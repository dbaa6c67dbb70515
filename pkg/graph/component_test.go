package graph

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	if !uf.Union(0, 1) {
		t.Error("Union(0,1) = false, want true")
	}
	if !uf.Union(1, 2) {
		t.Error("Union(1,2) = false, want true")
	}
	if uf.Union(0, 2) {
		t.Error("Union(0,2) = true, want false (already merged)")
	}

	if uf.Find(0) != uf.Find(2) {
		t.Error("0 and 2 have different roots after union")
	}
	if uf.Find(3) == uf.Find(0) {
		t.Error("3 and 0 share a root without union")
	}
}

func TestLargestComponent(t *testing.T) {
	// Two components: {0,1,2} and {3,4}.
	b := NewBuilder(false)
	b.AddEdge(10, 20, 1)
	b.AddEdge(20, 30, 1)
	b.AddEdge(40, 50, 1)
	g := b.Build()

	nodes := LargestComponent(g)
	if len(nodes) != 3 {
		t.Fatalf("largest component has %d nodes, want 3", len(nodes))
	}
}

func TestLargestComponentIgnoresDirection(t *testing.T) {
	// 0->1 and 2->1: weakly connected even though 0 cannot reach 2.
	b := NewBuilder(true)
	b.AddEdge(1, 2, 1)
	b.AddEdge(3, 2, 1)
	g := b.Build()

	nodes := LargestComponent(g)
	if len(nodes) != 3 {
		t.Fatalf("weak component has %d nodes, want 3", len(nodes))
	}
}

func TestFilterToComponent(t *testing.T) {
	b := NewBuilder(false)
	b.AddNode(10, 1.0, 103.0)
	b.AddNode(20, 1.1, 103.1)
	b.AddNode(30, 1.2, 103.2)
	b.AddNode(40, 5.0, 100.0)
	b.AddNode(50, 5.1, 100.1)
	b.AddEdge(10, 20, 100)
	b.AddEdge(20, 30, 200)
	b.AddEdge(40, 50, 300)
	g := b.Build()

	nodes := LargestComponent(g)
	fg := FilterToComponent(g, nodes)

	if fg.NumNodes != 3 {
		t.Fatalf("filtered NumNodes = %d, want 3", fg.NumNodes)
	}
	if fg.NumEdges != 4 {
		t.Fatalf("filtered NumEdges = %d, want 4", fg.NumEdges)
	}

	// External ids survive the reindex.
	idx, ok := fg.NodeIndex(20)
	if !ok {
		t.Fatal("NodeIndex(20) lost after filtering")
	}
	if fg.OrigID[idx] != 20 {
		t.Errorf("OrigID[%d] = %d, want 20", idx, fg.OrigID[idx])
	}
	if fg.NodeLat[idx] != 1.1 {
		t.Errorf("NodeLat[%d] = %f, want 1.1", idx, fg.NodeLat[idx])
	}

	// Dropped component must be gone.
	if _, ok := fg.NodeIndex(40); ok {
		t.Error("NodeIndex(40) still present after filtering")
	}
}

func TestFilterToComponentEmpty(t *testing.T) {
	b := NewBuilder(true)
	b.AddEdge(1, 2, 1)
	g := b.Build()

	fg := FilterToComponent(g, nil)
	if fg.NumNodes != 0 || fg.NumEdges != 0 {
		t.Errorf("empty filter gave %d nodes, %d edges", fg.NumNodes, fg.NumEdges)
	}
}
