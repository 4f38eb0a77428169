package layout

import (
	"context"
	"testing"
)

func chainRequest() *Request {
	return &Request{
		Nodes: []NodeSpec{
			{ID: "a", Width: 80, Height: 32},
			{ID: "b", Width: 80, Height: 32},
			{ID: "c", Width: 80, Height: 32},
		},
		Edges: []EdgeSpec{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
		},
	}
}

func TestLayeredEngineChain(t *testing.T) {
	engine := NewLayeredEngine()
	res, err := engine.Layout(context.Background(), chainRequest())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	if len(res.Nodes) != 3 {
		t.Fatalf("Expected 3 placements, got %d", len(res.Nodes))
	}
	ax := res.Nodes["a"].Position.X
	bx := res.Nodes["b"].Position.X
	cx := res.Nodes["c"].Position.X
	if !(ax < bx && bx < cx) {
		t.Errorf("Expected left-to-right layering, got x: a=%v b=%v c=%v", ax, bx, cx)
	}

	if len(res.Edges) != 2 {
		t.Errorf("Expected 2 edge routes, got %d", len(res.Edges))
	}
	for id, route := range res.Edges {
		if len(route.Points) < 2 {
			t.Errorf("Expected at least 2 route points for %s, got %d", id, len(route.Points))
		}
	}
}

func TestLayeredEngineCycleSharesLayer(t *testing.T) {
	req := &Request{
		Nodes: []NodeSpec{
			{ID: "a", Width: 80, Height: 32},
			{ID: "b", Width: 80, Height: 32},
			{ID: "sink", Width: 80, Height: 32},
		},
		Edges: []EdgeSpec{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"}, // cycle
			{ID: "e3", Source: "b", Target: "sink"},
		},
	}
	engine := NewLayeredEngine()
	res, err := engine.Layout(context.Background(), req)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	if res.Nodes["a"].Position.X != res.Nodes["b"].Position.X {
		t.Errorf("Expected cycle members on the same layer, got a=%v b=%v",
			res.Nodes["a"].Position.X, res.Nodes["b"].Position.X)
	}
	if res.Nodes["sink"].Position.X <= res.Nodes["a"].Position.X {
		t.Errorf("Expected sink downstream of the cycle")
	}
}

func TestLayeredEngineCollapsedContainerIsALeaf(t *testing.T) {
	req := &Request{
		Nodes: []NodeSpec{{ID: "n1", Width: 80, Height: 32}},
		Containers: []ContainerSpec{
			{ID: "boxed", Collapsed: true, Width: 120, Height: 40},
		},
		Edges: []EdgeSpec{{ID: "e1", Source: "n1", Target: "boxed"}},
	}
	engine := NewLayeredEngine()
	res, err := engine.Layout(context.Background(), req)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	p, ok := res.Containers["boxed"]
	if !ok {
		t.Fatal("Expected collapsed container placed as a leaf")
	}
	if p.Dimensions.Width != 120 || p.Dimensions.Height != 40 {
		t.Errorf("Expected collapsed size preserved, got %+v", p.Dimensions)
	}
	if p.Position.X <= res.Nodes["n1"].Position.X {
		t.Error("Expected collapsed container downstream of its predecessor")
	}
}

func TestLayeredEngineBoxesExpandedContainers(t *testing.T) {
	req := &Request{
		Nodes: []NodeSpec{
			{ID: "m1", Width: 80, Height: 32, Container: "box"},
			{ID: "m2", Width: 80, Height: 32, Container: "box"},
			{ID: "free", Width: 80, Height: 32},
		},
		Containers: []ContainerSpec{
			{ID: "box", Collapsed: false, Width: 160, Height: 160},
		},
		Edges: []EdgeSpec{{ID: "e1", Source: "m1", Target: "m2"}},
	}
	engine := NewLayeredEngine()
	res, err := engine.Layout(context.Background(), req)
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}

	box, ok := res.Containers["box"]
	if !ok {
		t.Fatal("Expected expanded container boxed")
	}
	for _, id := range []string{"m1", "m2"} {
		p := res.Nodes[id]
		if p.Position.X < box.Position.X ||
			p.Position.X+p.Dimensions.Width > box.Position.X+box.Dimensions.Width ||
			p.Position.Y < box.Position.Y ||
			p.Position.Y+p.Dimensions.Height > box.Position.Y+box.Dimensions.Height {
			t.Errorf("Expected %s inside the container box, node %+v box %+v", id, p, box)
		}
	}
}

func TestLayeredEngineContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := NewLayeredEngine()
	if _, err := engine.Layout(ctx, chainRequest()); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestLayeredEngineDeterministic(t *testing.T) {
	engine := NewLayeredEngine()
	first, err := engine.Layout(context.Background(), chainRequest())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	second, err := engine.Layout(context.Background(), chainRequest())
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	for id, p := range first.Nodes {
		if second.Nodes[id] != p {
			t.Errorf("Expected identical placement for %s, got %+v then %+v", id, p, second.Nodes[id])
		}
	}
}
