package vis

import (
	"reflect"
	"testing"

	"github.com/ritzau/hydroscope/pkg/model"
)

func TestVisibleSnapshotsAreSorted(t *testing.T) {
	s := buildTree(t)

	var nodeIDs []string
	for _, n := range s.VisibleNodes() {
		nodeIDs = append(nodeIDs, n.ID)
	}
	want := []string{"deep_node", "node_in_a", "node_in_b", "root_leaf_node"}
	if !reflect.DeepEqual(nodeIDs, want) {
		t.Errorf("Expected sorted visible nodes %v, got %v", want, nodeIDs)
	}

	var containerIDs []string
	for _, c := range s.VisibleContainers() {
		containerIDs = append(containerIDs, c.ID)
	}
	wantC := []string{"childA", "childB", "grandchild", "root"}
	if !reflect.DeepEqual(containerIDs, wantC) {
		t.Errorf("Expected sorted visible containers %v, got %v", wantC, containerIDs)
	}
}

func TestVisibleEdgesUnionsRealAndAggregated(t *testing.T) {
	s := buildTree(t)
	addEdge(t, s, "e_keep", "root_leaf_node", "node_in_b")
	addEdge(t, s, "e_agg", "node_in_a", "node_in_b")
	s.CollapseContainer("childA")

	edges, err := s.VisibleEdges()
	if err != nil {
		t.Fatalf("VisibleEdges failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("Expected 2 visible edges, got %d", len(edges))
	}
	byID := map[string]EdgeRef{}
	for _, e := range edges {
		byID[e.ID] = e
	}
	if _, ok := byID["e_keep"]; !ok {
		t.Error("Expected untouched real edge visible")
	}
	agg, ok := byID[hyperIDFor("childA", "node_in_b")]
	if !ok {
		t.Fatalf("Expected aggregated edge in the union, got %v", byID)
	}
	if agg.Type != model.TypeHyper {
		t.Errorf("Expected aggregated type %q, got %q", model.TypeHyper, agg.Type)
	}
	if agg.Source != "childA" {
		t.Errorf("Expected aggregate source childA, got %s", agg.Source)
	}
}

func TestExpandedAndCollapsedIDsTrackVisibility(t *testing.T) {
	s := buildTree(t)
	s.CollapseContainer("childA")

	expanded := s.ExpandedContainerIDs()
	collapsed := s.CollapsedContainerIDs()
	if !reflect.DeepEqual(expanded, []string{"childB", "root"}) {
		t.Errorf("Expected expanded [childB root], got %v", expanded)
	}
	// grandchild is collapsed but hidden, so it must not be reported.
	if !reflect.DeepEqual(collapsed, []string{"childA"}) {
		t.Errorf("Expected collapsed [childA], got %v", collapsed)
	}
}

func TestSetNodeVisibilityCascadesToEdges(t *testing.T) {
	s := buildTree(t)
	addEdge(t, s, "e1", "node_in_a", "node_in_b")

	if err := s.SetNodeVisibility("node_in_a", false); err != nil {
		t.Fatalf("SetNodeVisibility failed: %v", err)
	}
	if !s.GetEdge("e1").Hidden {
		t.Error("Expected edge hidden when an endpoint is hidden")
	}
	// The hidden endpoint lifts to its owning container, so the edge is
	// aggregated rather than dropped.
	if s.GetHyperEdge(hyperIDFor("childA", "node_in_b")) == nil {
		t.Error("Expected edge rerouted to the container representative")
	}

	if err := s.SetNodeVisibility("node_in_a", true); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if s.GetEdge("e1").Hidden {
		t.Error("Expected edge visible again")
	}
	if s.HyperEdgeCount() != 0 {
		t.Errorf("Expected aggregate dissolved, got %d", s.HyperEdgeCount())
	}
	if err := s.SetNodeVisibility("ghost", false); err != nil {
		t.Errorf("Expected unknown ID no-op, got %v", err)
	}
}

func TestLayoutSettersIgnoreUnknownIDs(t *testing.T) {
	s := buildTree(t)

	s.SetNodeLayout("ghost", model.Position{X: 1}, model.Dimensions{Width: 1})
	s.SetContainerLayout("ghost", model.Position{X: 1}, model.Dimensions{Width: 1})
	s.SetEdgeLayout("ghost", model.EdgeRoute{})

	if s.GetNodeLayout("ghost") != nil || s.GetContainerLayout("ghost") != nil || s.GetEdgeLayout("ghost") != nil {
		t.Error("Expected unknown IDs silently dropped")
	}

	s.SetNodeLayout("node_in_a", model.Position{X: 10, Y: 20}, model.Dimensions{Width: 80, Height: 32})
	l := s.GetNodeLayout("node_in_a")
	if l == nil || l.Position.X != 10 || l.Position.Y != 20 {
		t.Errorf("Expected stored layout, got %+v", l)
	}
}

func TestAdjustedContainerDimensions(t *testing.T) {
	s := buildTree(t)
	s.CollapseContainer("childA")

	dims := s.AdjustedContainerDimensions("childA")
	if dims.Width < model.CollapsedWidth {
		t.Errorf("Expected at least the base collapsed width, got %v", dims.Width)
	}
	if dims.Width > model.MaxCollapsedExtent || dims.Height > model.MaxCollapsedExtent {
		t.Errorf("Expected collapsed size capped at %v, got %+v", model.MaxCollapsedExtent, dims)
	}

	expanded := s.AdjustedContainerDimensions("childB")
	if expanded.Width < model.MinContainerSize {
		t.Errorf("Expected expanded container at least %v wide, got %v", model.MinContainerSize, expanded.Width)
	}
}
