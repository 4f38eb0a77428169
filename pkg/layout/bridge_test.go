package layout

import (
	"context"
	"fmt"
	"testing"

	"github.com/ritzau/hydroscope/pkg/model"
	"github.com/ritzau/hydroscope/pkg/vis"
)

func bridgeFixture(t *testing.T) *vis.VisualizationState {
	t.Helper()
	s := vis.NewVisualizationState()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.AddNode(&model.Node{ID: id, Label: id}); err != nil {
			t.Fatalf("AddNode failed: %v", err)
		}
	}
	if err := s.AddContainer(&model.Container{ID: "grp", Label: "grp", Children: []string{"a", "b"}}); err != nil {
		t.Fatalf("AddContainer failed: %v", err)
	}
	if err := s.AddEdge(&model.Edge{ID: "e1", Source: "a", Target: "c"}); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	return s
}

func TestRunnerAppliesLayout(t *testing.T) {
	s := bridgeFixture(t)
	runner := NewRunner(NewLayeredEngine())

	if err := runner.Run(context.Background(), s); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if s.GetNodeLayout(id) == nil {
			t.Errorf("Expected layout stored for node %s", id)
		}
	}
	if s.GetContainerLayout("grp") == nil {
		t.Error("Expected layout stored for container grp")
	}
	if s.GetEdgeLayout("e1") == nil {
		t.Error("Expected route stored for e1")
	}
	if s.LayoutLocked() {
		t.Error("Expected layout lock released after the pass")
	}
}

func TestRunnerTriggersSmartCollapseOnFirstPass(t *testing.T) {
	s := vis.NewVisualizationState()
	var children []string
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("n%d", i)
		s.AddNode(&model.Node{ID: id, Label: id})
		children = append(children, id)
	}
	s.AddContainer(&model.Container{ID: "crowded", Label: "crowded", Children: children})

	runner := NewRunner(NewLayeredEngine())
	if err := runner.Run(context.Background(), s); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !s.GetContainer("crowded").Collapsed {
		t.Error("Expected crowded container auto-collapsed before the first layout")
	}

	// A later manual expand followed by another pass must not re-collapse.
	if err := s.ExpandContainer("crowded"); err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if err := runner.Run(context.Background(), s); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if s.GetContainer("crowded").Collapsed {
		t.Error("Expected heuristic inactive after a manual operation")
	}
}

func TestBuildRequestReflectsVisibility(t *testing.T) {
	s := bridgeFixture(t)
	if err := s.CollapseContainer("grp"); err != nil {
		t.Fatalf("collapse failed: %v", err)
	}

	req, err := BuildRequest(s)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}

	if len(req.Nodes) != 1 || req.Nodes[0].ID != "c" {
		t.Errorf("Expected only node c visible, got %+v", req.Nodes)
	}
	if len(req.Containers) != 1 || !req.Containers[0].Collapsed {
		t.Errorf("Expected one collapsed container, got %+v", req.Containers)
	}
	// The crossing real edge is replaced by its aggregate.
	if len(req.Edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(req.Edges))
	}
	if req.Edges[0].Source != "grp" || req.Edges[0].Target != "c" {
		t.Errorf("Expected grp -> c aggregate, got %+v", req.Edges[0])
	}
}
