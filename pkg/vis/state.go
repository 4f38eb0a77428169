// Package vis implements the visualization state engine: a mutable
// hierarchical graph model with collapsible containers, visibility
// cascades, edge aggregation into hyperedges, and invariant checking.
package vis

import (
	"sort"

	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/model"
)

// EntityLayout is the stored layout result for a node or container.
type EntityLayout struct {
	Position   model.Position   `json:"position"`
	Dimensions model.Dimensions `json:"dimensions"`
}

// VisualizationState is the single source of truth for the rendered graph.
// It owns the canonical entity collections, the derived visibility caches,
// the covered-edges index, and the hyperedge bookkeeping. It is mutated in
// place by a single logical owner; it is not safe for concurrent writers.
type VisualizationState struct {
	// Canonical collections
	nodes      map[string]*model.Node
	edges      map[string]*model.Edge
	containers map[string]*model.Container
	hyperEdges map[string]*model.HyperEdge

	// Insertion order, needed for deterministic tree traversal
	nodeOrder      []string
	containerOrder []string

	// Visibility caches for O(1) render-time access
	visibleNodes      map[string]*model.Node
	visibleEdges      map[string]*model.Edge
	visibleContainers map[string]*model.Container
	expanded          map[string]bool
	collapsed         map[string]bool

	// Structural indices. Both directions of every relationship are kept
	// in sync by a single mutation choke point per relationship.
	nodeContainer   map[string]string          // node -> owning container
	containerParent map[string]string          // container -> parent container
	childSet        map[string]map[string]bool // container -> child membership
	incident        map[string]map[string]bool // endpoint -> incident real edge IDs

	// Memoized recursive leaf counts, invalidated up the ancestor chain
	leafCounts map[string]int

	coverage coverageIndex

	// Hyperedge bookkeeping: which real edges each hyperedge aggregates,
	// and which hyperedge currently masks each hidden real edge.
	hyperUnderlying map[string]map[string]bool
	edgeHyper       map[string]string

	// Pre-cascade collapsed flags, restored on parent expansion
	priorCollapsed map[string]bool

	// Layout state
	nodeLayout      map[string]*EntityLayout
	containerLayout map[string]*EntityLayout
	edgeLayout      map[string]*model.EdgeRoute

	// Layout lock: container mutations arriving while a layout computation
	// is outstanding are queued and replayed in order on release.
	layoutLocked bool
	pendingOps   []func() error

	level     ValidationLevel
	suspended int

	smartCollapseArmed bool
}

// NewVisualizationState creates an empty state with Normal validation.
func NewVisualizationState() *VisualizationState {
	s := &VisualizationState{level: ValidationNormal}
	s.reset()
	return s
}

// reset reinitializes every collection and index and re-arms smart collapse.
func (s *VisualizationState) reset() {
	s.nodes = make(map[string]*model.Node)
	s.edges = make(map[string]*model.Edge)
	s.containers = make(map[string]*model.Container)
	s.hyperEdges = make(map[string]*model.HyperEdge)
	s.nodeOrder = nil
	s.containerOrder = nil
	s.visibleNodes = make(map[string]*model.Node)
	s.visibleEdges = make(map[string]*model.Edge)
	s.visibleContainers = make(map[string]*model.Container)
	s.expanded = make(map[string]bool)
	s.collapsed = make(map[string]bool)
	s.nodeContainer = make(map[string]string)
	s.containerParent = make(map[string]string)
	s.childSet = make(map[string]map[string]bool)
	s.incident = make(map[string]map[string]bool)
	s.leafCounts = make(map[string]int)
	s.coverage = newCoverageIndex()
	s.hyperUnderlying = make(map[string]map[string]bool)
	s.edgeHyper = make(map[string]string)
	s.priorCollapsed = make(map[string]bool)
	s.nodeLayout = make(map[string]*EntityLayout)
	s.containerLayout = make(map[string]*EntityLayout)
	s.edgeLayout = make(map[string]*model.EdgeRoute)
	s.smartCollapseArmed = true
}

// Reset clears all entities and derived state. Loading new data re-arms the
// smart-collapse heuristic even if a previous manual operation disarmed it.
func (s *VisualizationState) Reset() {
	s.reset()
	logging.Debug("visualization state reset")
}

// GetNode returns the node with the given ID, or nil if absent.
func (s *VisualizationState) GetNode(id string) *model.Node { return s.nodes[id] }

// GetEdge returns the edge with the given ID, or nil if absent.
func (s *VisualizationState) GetEdge(id string) *model.Edge { return s.edges[id] }

// GetContainer returns the container with the given ID, or nil if absent.
func (s *VisualizationState) GetContainer(id string) *model.Container { return s.containers[id] }

// GetHyperEdge returns the hyperedge with the given ID, or nil if absent.
func (s *VisualizationState) GetHyperEdge(id string) *model.HyperEdge { return s.hyperEdges[id] }

// NodeCount returns the number of canonical nodes.
func (s *VisualizationState) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of canonical real edges.
func (s *VisualizationState) EdgeCount() int { return len(s.edges) }

// ContainerCount returns the number of containers.
func (s *VisualizationState) ContainerCount() int { return len(s.containers) }

// HyperEdgeCount returns the number of live aggregated edges.
func (s *VisualizationState) HyperEdgeCount() int { return len(s.hyperEdges) }

// VisibleNodes returns a snapshot of the currently visible nodes, sorted by
// ID for deterministic downstream layout.
func (s *VisualizationState) VisibleNodes() []*model.Node {
	out := make([]*model.Node, 0, len(s.visibleNodes))
	for _, n := range s.visibleNodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// VisibleContainers returns a snapshot of the currently visible containers,
// sorted by ID.
func (s *VisualizationState) VisibleContainers() []*model.Container {
	out := make([]*model.Container, 0, len(s.visibleContainers))
	for _, c := range s.visibleContainers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgeRef is a uniform view over real and aggregated edges, as handed to
// the rendering surface.
type EdgeRef struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Style  string `json:"style,omitempty"`
	Type   string `json:"type"`
}

// VisibleEdges returns the union of visible real edges and non-hidden
// hyperedges, sorted by ID. Render keys must be globally unique: an ID
// collision between the two sets is fatal under Normal and Strict
// validation and downgraded to a warning otherwise.
func (s *VisualizationState) VisibleEdges() ([]EdgeRef, error) {
	out := make([]EdgeRef, 0, len(s.visibleEdges)+len(s.hyperEdges))
	seen := make(map[string]bool, len(s.visibleEdges))
	for _, e := range s.visibleEdges {
		seen[e.ID] = true
		out = append(out, EdgeRef{ID: e.ID, Source: e.Source, Target: e.Target, Style: e.Style, Type: e.Type})
	}
	var dups []string
	for _, h := range s.hyperEdges {
		if h.Hidden {
			continue
		}
		if seen[h.ID] {
			dups = append(dups, h.ID)
			continue
		}
		out = append(out, EdgeRef{ID: h.ID, Source: h.Source, Target: h.Target, Style: h.Style, Type: h.Type})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(dups) > 0 {
		verr := &ValidationError{Violations: []Violation{{
			Code:     ViolationDuplicateEdgeID,
			EntityID: dups[0],
			Message:  "render key collision between real and aggregated edges",
		}}}
		if s.level >= ValidationNormal {
			return out, verr
		}
		logging.Warn("duplicate render keys", "ids", dups)
	}
	return out, nil
}

// ExpandedContainerIDs returns the IDs of visible, expanded containers.
func (s *VisualizationState) ExpandedContainerIDs() []string {
	out := make([]string, 0, len(s.expanded))
	for id := range s.expanded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CollapsedContainerIDs returns the IDs of visible, collapsed containers.
func (s *VisualizationState) CollapsedContainerIDs() []string {
	out := make([]string, 0, len(s.collapsed))
	for id := range s.collapsed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ToggleNodeLabel flips a node between its short and full label and resizes
// it to fit. Unknown IDs are a no-op.
func (s *VisualizationState) ToggleNodeLabel(id string) error {
	n := s.nodes[id]
	if n == nil {
		return nil
	}
	n.ShowingLongLabel = !n.ShowingLongLabel
	dims := model.LabelDimensions(n.DisplayLabel(), model.MinNodeWidth, model.MinNodeHeight)
	n.Width, n.Height = dims.Width, dims.Height
	return s.afterMutation()
}

// LockLayout marks a layout computation as outstanding. Container mutations
// arriving while locked are queued instead of applied.
func (s *VisualizationState) LockLayout() {
	s.layoutLocked = true
}

// UnlockLayout releases the layout lock and replays queued operations in
// FIFO order.
func (s *VisualizationState) UnlockLayout() {
	s.layoutLocked = false
	pending := s.pendingOps
	s.pendingOps = nil
	for _, op := range pending {
		if err := op(); err != nil {
			logging.Error("queued operation failed after layout", "error", err)
		}
	}
	if len(pending) > 0 {
		logging.Debug("replayed queued operations", "count", len(pending))
	}
}

// LayoutLocked reports whether a layout computation is outstanding.
func (s *VisualizationState) LayoutLocked() bool { return s.layoutLocked }

// enqueueIfLocked defers op until the layout lock releases. Returns true if
// the operation was queued.
func (s *VisualizationState) enqueueIfLocked(op func() error) bool {
	if !s.layoutLocked {
		return false
	}
	s.pendingOps = append(s.pendingOps, op)
	return true
}
