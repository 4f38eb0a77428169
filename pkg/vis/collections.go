package vis

import (
	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/model"
)

// AddNode inserts a node into the canonical collection. A duplicate ID
// overwrites the previous entry (last write wins). Visibility is derived
// from the owning container, if the node is already assigned to one.
func (s *VisualizationState) AddNode(n *model.Node) error {
	if n == nil || n.ID == "" {
		return nil
	}
	if n.Width == 0 || n.Height == 0 {
		dims := model.LabelDimensions(n.DisplayLabel(), model.MinNodeWidth, model.MinNodeHeight)
		n.Width, n.Height = dims.Width, dims.Height
	}
	if _, exists := s.nodes[n.ID]; !exists {
		s.nodeOrder = append(s.nodeOrder, n.ID)
	} else {
		logging.Debug("node overwritten", "id", n.ID)
	}
	s.nodes[n.ID] = n
	if owner := s.containers[s.nodeContainer[n.ID]]; owner != nil {
		n.Hidden = owner.Hidden || owner.Collapsed
	}
	if n.Hidden {
		delete(s.visibleNodes, n.ID)
	} else {
		s.visibleNodes[n.ID] = n
	}
	s.coverage.invalidate()
	s.invalidateLeafCounts(s.nodeContainer[n.ID])
	return s.afterMutation()
}

// AddEdge inserts a real edge. Its visibility and any hyperedge routing are
// derived immediately from the current endpoint visibility.
func (s *VisualizationState) AddEdge(e *model.Edge) error {
	if e == nil || e.ID == "" {
		return nil
	}
	e.Type = model.TypeGraph
	if old, exists := s.edges[e.ID]; exists {
		logging.Debug("edge overwritten", "id", e.ID)
		s.dropEdgeIndexes(old)
	}
	s.edges[e.ID] = e
	s.addIncident(e.Source, e.ID)
	s.addIncident(e.Target, e.ID)
	s.coverage.coverEdge(s, e)
	s.rerouteEdge(e)
	return s.afterMutation()
}

// AddContainer inserts a container and registers its children, deriving the
// hidden flag of every child from the container's own state. A duplicate ID
// overwrites the previous entry.
func (s *VisualizationState) AddContainer(c *model.Container) error {
	if c == nil || c.ID == "" {
		return nil
	}
	if c.Width == 0 || c.Height == 0 {
		dims := model.LabelDimensions(c.Label, model.MinContainerSize, model.MinContainerSize)
		c.Width, c.Height = dims.Width, dims.Height
	}
	if _, exists := s.containers[c.ID]; !exists {
		s.containerOrder = append(s.containerOrder, c.ID)
	} else {
		logging.Debug("container overwritten", "id", c.ID)
	}
	s.containers[c.ID] = c
	// The child may have been registered before this container existed and
	// been mistaken for a node; repair the relationship indices.
	for parentID, children := range s.childSet {
		if children[c.ID] {
			s.containerParent[c.ID] = parentID
			delete(s.nodeContainer, c.ID)
		}
	}
	s.childSet[c.ID] = make(map[string]bool, len(c.Children))
	for _, childID := range c.Children {
		s.childSet[c.ID][childID] = true
		if _, isContainer := s.containers[childID]; isContainer {
			s.containerParent[childID] = c.ID
		} else {
			s.nodeContainer[childID] = c.ID
		}
		s.applyDerivedChildVisibility(c, childID)
	}
	s.updateContainerVisibilityCaches(c.ID)
	s.coverage.invalidate()
	s.invalidateLeafCounts(c.ID)
	return s.afterMutation()
}

// applyDerivedChildVisibility hides a freshly registered child when its new
// parent is hidden or collapsed.
func (s *VisualizationState) applyDerivedChildVisibility(parent *model.Container, childID string) {
	forceHidden := parent.Hidden || parent.Collapsed
	if child := s.containers[childID]; child != nil {
		if forceHidden {
			child.Hidden = true
			child.Collapsed = true
		}
		s.updateContainerVisibilityCaches(childID)
		return
	}
	if n := s.nodes[childID]; n != nil {
		n.Hidden = forceHidden
		if n.Hidden {
			delete(s.visibleNodes, n.ID)
		} else {
			s.visibleNodes[n.ID] = n
		}
	}
}

// AssignNodeToContainer moves a node into a container (dynamic reparenting).
// Coverage is recomputed for every edge touching the node.
func (s *VisualizationState) AssignNodeToContainer(nodeID, containerID string) error {
	n := s.nodes[nodeID]
	c := s.containers[containerID]
	if n == nil || c == nil {
		return nil
	}
	if prev := s.containers[s.nodeContainer[nodeID]]; prev != nil {
		delete(s.childSet[prev.ID], nodeID)
		prev.Children = removeString(prev.Children, nodeID)
		s.invalidateLeafCounts(prev.ID)
	}
	s.nodeContainer[nodeID] = containerID
	if s.childSet[containerID] == nil {
		s.childSet[containerID] = make(map[string]bool)
	}
	if !s.childSet[containerID][nodeID] {
		s.childSet[containerID][nodeID] = true
		c.Children = append(c.Children, nodeID)
	}
	s.applyDerivedChildVisibility(c, nodeID)
	s.invalidateLeafCounts(containerID)
	s.coverage.recoverNode(s, nodeID)
	for edgeID := range s.incident[nodeID] {
		if e := s.edges[edgeID]; e != nil {
			s.rerouteEdge(e)
		}
	}
	return s.afterMutation()
}

// RemoveNode deletes a node and every edge touching it. Unknown IDs are a
// silent no-op.
func (s *VisualizationState) RemoveNode(id string) error {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	for edgeID := range s.incident[id] {
		s.removeEdgeInternal(edgeID)
	}
	if owner := s.containers[s.nodeContainer[id]]; owner != nil {
		delete(s.childSet[owner.ID], id)
		owner.Children = removeString(owner.Children, id)
		s.invalidateLeafCounts(owner.ID)
	}
	delete(s.nodeContainer, id)
	delete(s.nodes, id)
	delete(s.visibleNodes, id)
	delete(s.nodeLayout, id)
	s.nodeOrder = removeString(s.nodeOrder, id)
	s.coverage.invalidate()
	return s.afterMutation()
}

// RemoveEdge deletes a real edge. Unknown IDs are a silent no-op.
func (s *VisualizationState) RemoveEdge(id string) error {
	if _, ok := s.edges[id]; !ok {
		return nil
	}
	s.removeEdgeInternal(id)
	return s.afterMutation()
}

func (s *VisualizationState) removeEdgeInternal(id string) {
	e := s.edges[id]
	if e == nil {
		return
	}
	s.dropEdgeIndexes(e)
	delete(s.edges, id)
	delete(s.visibleEdges, id)
	delete(s.edgeLayout, id)
}

// dropEdgeIndexes detaches an edge from the adjacency, coverage, and
// hyperedge indices.
func (s *VisualizationState) dropEdgeIndexes(e *model.Edge) {
	s.removeIncident(e.Source, e.ID)
	s.removeIncident(e.Target, e.ID)
	s.coverage.uncoverEdge(e.ID)
	s.detachFromHyper(e.ID)
}

// RemoveContainer deletes a container, promoting its children to the
// container's own parent. Unknown IDs are a silent no-op.
func (s *VisualizationState) RemoveContainer(id string) error {
	c := s.containers[id]
	if c == nil {
		return nil
	}
	parentID := s.containerParent[id]
	parent := s.containers[parentID]
	for _, childID := range c.Children {
		if _, isContainer := s.containers[childID]; isContainer {
			delete(s.containerParent, childID)
			if parent != nil {
				s.containerParent[childID] = parentID
			}
		} else {
			delete(s.nodeContainer, childID)
			if parent != nil {
				s.nodeContainer[childID] = parentID
			}
		}
		if parent != nil {
			s.childSet[parentID][childID] = true
			parent.Children = append(parent.Children, childID)
		}
	}
	if parent != nil {
		delete(s.childSet[parentID], id)
		parent.Children = removeString(parent.Children, id)
	}
	delete(s.containers, id)
	delete(s.containerParent, id)
	delete(s.childSet, id)
	delete(s.visibleContainers, id)
	delete(s.expanded, id)
	delete(s.collapsed, id)
	delete(s.priorCollapsed, id)
	delete(s.containerLayout, id)
	s.containerOrder = removeString(s.containerOrder, id)
	s.coverage.invalidate()
	s.invalidateLeafCounts(parentID)
	return s.afterMutation()
}

// addIncident registers an edge in the endpoint adjacency index.
func (s *VisualizationState) addIncident(endpoint, edgeID string) {
	set := s.incident[endpoint]
	if set == nil {
		set = make(map[string]bool)
		s.incident[endpoint] = set
	}
	set[edgeID] = true
}

func (s *VisualizationState) removeIncident(endpoint, edgeID string) {
	if set := s.incident[endpoint]; set != nil {
		delete(set, edgeID)
		if len(set) == 0 {
			delete(s.incident, endpoint)
		}
	}
}

// OwningContainer returns the ID of the container a node is assigned to,
// or "" for a root-level node.
func (s *VisualizationState) OwningContainer(nodeID string) string {
	return s.nodeContainer[nodeID]
}

// ParentContainer returns the ID of a container's parent, or "" for a
// top-level container.
func (s *VisualizationState) ParentContainer(containerID string) string {
	return s.containerParent[containerID]
}

// containerAncestors returns the strict ancestor chain of a container,
// nearest first.
func (s *VisualizationState) containerAncestors(id string) []string {
	var out []string
	for p := s.containerParent[id]; p != ""; p = s.containerParent[p] {
		out = append(out, p)
	}
	return out
}

// endpointAncestors returns every container an endpoint is nested under.
// For a node that is the owning chain; for a container, its strict
// ancestors (a container does not cover edges that terminate at itself).
func (s *VisualizationState) endpointAncestors(endpoint string) []string {
	if _, isContainer := s.containers[endpoint]; isContainer {
		return s.containerAncestors(endpoint)
	}
	owner, ok := s.nodeContainer[endpoint]
	if !ok {
		return nil
	}
	return append([]string{owner}, s.containerAncestors(owner)...)
}

// visibleRep resolves an endpoint to its currently visible representative:
// the entity itself when visible, otherwise the lowest visible ancestor
// container (necessarily collapsed). Returns "" when nothing is visible.
func (s *VisualizationState) visibleRep(endpoint string) string {
	if n := s.nodes[endpoint]; n != nil {
		if !n.Hidden {
			return endpoint
		}
	} else if c := s.containers[endpoint]; c != nil {
		if !c.Hidden {
			return endpoint
		}
	} else {
		return ""
	}
	for _, anc := range s.endpointAncestors(endpoint) {
		if c := s.containers[anc]; c != nil && !c.Hidden {
			return anc
		}
	}
	return ""
}

// containerDescendants collects every node and container nested under the
// given container, the container itself excluded.
func (s *VisualizationState) containerDescendants(id string) (nodes, containers []string) {
	c := s.containers[id]
	if c == nil {
		return nil, nil
	}
	for _, childID := range c.Children {
		if _, isContainer := s.containers[childID]; isContainer {
			containers = append(containers, childID)
			cn, cc := s.containerDescendants(childID)
			nodes = append(nodes, cn...)
			containers = append(containers, cc...)
		} else if _, isNode := s.nodes[childID]; isNode {
			nodes = append(nodes, childID)
		}
	}
	return nodes, containers
}

// ImmediateLeafCount returns the number of direct node children.
func (s *VisualizationState) ImmediateLeafCount(id string) int {
	c := s.containers[id]
	if c == nil {
		return 0
	}
	count := 0
	for _, childID := range c.Children {
		if _, isNode := s.nodes[childID]; isNode {
			count++
		}
	}
	return count
}

// RecursiveLeafCount returns the number of nodes nested anywhere under the
// container. Memoized; the memo is invalidated up the ancestor chain on any
// structural change.
func (s *VisualizationState) RecursiveLeafCount(id string) int {
	if count, ok := s.leafCounts[id]; ok {
		return count
	}
	c := s.containers[id]
	if c == nil {
		return 0
	}
	count := 0
	for _, childID := range c.Children {
		if _, isContainer := s.containers[childID]; isContainer {
			count += s.RecursiveLeafCount(childID)
		} else if _, isNode := s.nodes[childID]; isNode {
			count++
		}
	}
	s.leafCounts[id] = count
	return count
}

// invalidateLeafCounts drops the memoized counts for a container and every
// ancestor above it.
func (s *VisualizationState) invalidateLeafCounts(id string) {
	for id != "" {
		delete(s.leafCounts, id)
		id = s.containerParent[id]
	}
}

func removeString(ss []string, target string) []string {
	for i, v := range ss {
		if v == target {
			return append(ss[:i], ss[i+1:]...)
		}
	}
	return ss
}
