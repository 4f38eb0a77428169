package vis

import (
	"github.com/ritzau/hydroscope/pkg/model"
)

// SetNodeVisibility toggles a node's hidden flag and cascades the change to
// every edge touching it. An edge is visible only while both of its
// endpoints are independently visible. Unknown IDs are a silent no-op.
func (s *VisualizationState) SetNodeVisibility(id string, visible bool) error {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	s.setNodeHidden(n, !visible)
	for edgeID := range s.incident[id] {
		if e := s.edges[edgeID]; e != nil {
			s.rerouteEdge(e)
		}
	}
	return s.afterMutation()
}

// setNodeHidden updates the node flag and the visible-node cache together.
func (s *VisualizationState) setNodeHidden(n *model.Node, hidden bool) {
	n.Hidden = hidden
	if hidden {
		delete(s.visibleNodes, n.ID)
	} else {
		s.visibleNodes[n.ID] = n
	}
}

// updateContainerVisibilityCaches reconciles a container's presence in the
// visible/expanded/collapsed cache maps. Every container mutator passes
// through here; nothing else may touch these maps.
func (s *VisualizationState) updateContainerVisibilityCaches(id string) {
	c := s.containers[id]
	if c == nil {
		delete(s.visibleContainers, id)
		delete(s.expanded, id)
		delete(s.collapsed, id)
		return
	}
	if c.Hidden {
		delete(s.visibleContainers, id)
		delete(s.expanded, id)
		delete(s.collapsed, id)
		return
	}
	s.visibleContainers[id] = c
	if c.Collapsed {
		s.collapsed[id] = true
		delete(s.expanded, id)
	} else {
		s.expanded[id] = true
		delete(s.collapsed, id)
	}
}

// cascadeContainerVisibility recursively applies a hidden/visible flag to
// every descendant of the container, keeping the downward invariant intact.
// Edges are not touched here; callers reroute the affected subtree after
// the cascade settles.
func (s *VisualizationState) cascadeContainerVisibility(id string, visible bool) {
	c := s.containers[id]
	if c == nil {
		return
	}
	for _, childID := range c.Children {
		if child := s.containers[childID]; child != nil {
			child.Hidden = !visible
			s.updateContainerVisibilityCaches(childID)
			s.cascadeContainerVisibility(childID, visible)
			continue
		}
		if n := s.nodes[childID]; n != nil {
			s.setNodeHidden(n, !visible)
		}
	}
}

// rerouteEdge re-derives a single real edge's visibility and aggregation
// from the current endpoint states:
//
//	both endpoints visible          -> visible real edge
//	both resolve to one container   -> hidden, fully inside a collapse
//	endpoints lift to distinct reps -> hidden, aggregated into a hyperedge
//	an endpoint has no visible rep  -> hidden
func (s *VisualizationState) rerouteEdge(e *model.Edge) {
	s.detachFromHyper(e.ID)
	srcRep := s.visibleRep(e.Source)
	dstRep := s.visibleRep(e.Target)
	switch {
	case srcRep == "" || dstRep == "":
		s.setEdgeHidden(e, true)
	case srcRep == e.Source && dstRep == e.Target:
		s.setEdgeHidden(e, false)
	case srcRep == dstRep:
		s.setEdgeHidden(e, true)
	default:
		s.setEdgeHidden(e, true)
		s.attachToHyper(e, srcRep, dstRep)
	}
}

func (s *VisualizationState) setEdgeHidden(e *model.Edge, hidden bool) {
	e.Hidden = hidden
	if hidden {
		delete(s.visibleEdges, e.ID)
	} else {
		s.visibleEdges[e.ID] = e
	}
}

// rerouteSubtree re-derives every edge touching the container or anything
// nested under it. This is the only edge pass a collapse or expansion
// needs: hyperedges appear, migrate, and disappear as a side effect of the
// per-edge rerouting.
func (s *VisualizationState) rerouteSubtree(containerID string) {
	nodes, containers := s.containerDescendants(containerID)
	seen := make(map[string]bool)
	visit := func(endpoint string) {
		for edgeID := range s.incident[endpoint] {
			if seen[edgeID] {
				continue
			}
			seen[edgeID] = true
			if e := s.edges[edgeID]; e != nil {
				s.rerouteEdge(e)
			}
		}
	}
	visit(containerID)
	for _, id := range containers {
		visit(id)
	}
	for _, id := range nodes {
		visit(id)
	}
}
