package vis

import (
	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/model"
)

// coverageIndex answers "which real edges have both endpoints nested under
// container C" without rescanning the whole graph. It is a bidirectional
// map maintained incrementally on edge add/remove and node reparenting,
// with a lazy full rebuild after structural invalidation.
type coverageIndex struct {
	byContainer map[string]map[string]bool // container -> covered edge IDs
	byEdge      map[string]map[string]bool // edge -> covering container IDs
	dirty       bool
}

func newCoverageIndex() coverageIndex {
	return coverageIndex{
		byContainer: make(map[string]map[string]bool),
		byEdge:      make(map[string]map[string]bool),
		dirty:       true,
	}
}

// invalidate marks the index stale after a structural change that cannot be
// patched incrementally (container add/remove, bulk load).
func (ci *coverageIndex) invalidate() {
	ci.dirty = true
}

// ensure rebuilds the index if it has been invalidated since the last use.
func (ci *coverageIndex) ensure(s *VisualizationState) {
	if !ci.dirty {
		return
	}
	ci.byContainer = make(map[string]map[string]bool, len(s.containers))
	ci.byEdge = make(map[string]map[string]bool, len(s.edges))
	for _, e := range s.edges {
		ci.insert(s, e)
	}
	ci.dirty = false
	logging.Debug("covered-edges index rebuilt",
		"containers", len(ci.byContainer), "edges", len(ci.byEdge))
}

// insert computes an edge's coverage set: the intersection of the ancestor
// container chains of its two endpoints.
func (ci *coverageIndex) insert(s *VisualizationState, e *model.Edge) {
	srcAnc := s.endpointAncestors(e.Source)
	if len(srcAnc) == 0 {
		return
	}
	dstAnc := make(map[string]bool)
	for _, id := range s.endpointAncestors(e.Target) {
		dstAnc[id] = true
	}
	for _, id := range srcAnc {
		if !dstAnc[id] {
			continue
		}
		set := ci.byContainer[id]
		if set == nil {
			set = make(map[string]bool)
			ci.byContainer[id] = set
		}
		set[e.ID] = true
		eset := ci.byEdge[e.ID]
		if eset == nil {
			eset = make(map[string]bool)
			ci.byEdge[e.ID] = eset
		}
		eset[id] = true
	}
}

// coverEdge incrementally indexes a newly added edge. A dirty index defers
// to the next full rebuild instead.
func (ci *coverageIndex) coverEdge(s *VisualizationState, e *model.Edge) {
	if ci.dirty {
		return
	}
	ci.insert(s, e)
}

// uncoverEdge removes an edge from both directions of the map.
func (ci *coverageIndex) uncoverEdge(edgeID string) {
	if ci.dirty {
		return
	}
	for containerID := range ci.byEdge[edgeID] {
		delete(ci.byContainer[containerID], edgeID)
	}
	delete(ci.byEdge, edgeID)
}

// recoverNode recomputes coverage for every edge touching a node, used when
// the node moves between containers.
func (ci *coverageIndex) recoverNode(s *VisualizationState, nodeID string) {
	if ci.dirty {
		return
	}
	for edgeID := range s.incident[nodeID] {
		e := s.edges[edgeID]
		if e == nil {
			continue
		}
		ci.uncoverEdge(edgeID)
		ci.insert(s, e)
	}
}

// covers reports whether the container covers the edge (both endpoints
// transitively inside).
func (ci *coverageIndex) covers(containerID, edgeID string) bool {
	return ci.byContainer[containerID][edgeID]
}

// GetCoveredEdges returns the IDs of every real edge whose both endpoints
// are nested (possibly transitively) under the container, lazily rebuilding
// the index if it is stale. The result is a copy.
func (s *VisualizationState) GetCoveredEdges(containerID string) map[string]bool {
	s.coverage.ensure(s)
	src := s.coverage.byContainer[containerID]
	out := make(map[string]bool, len(src))
	for id := range src {
		out[id] = true
	}
	return out
}
