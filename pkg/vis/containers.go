package vis

import (
	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/model"
)

// hyperIDFor builds the canonical hyperedge ID for a pair of visible
// representatives. The pair is ordered lexicographically so that collapse
// operations starting from either side converge on the same aggregate.
func hyperIDFor(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "hyper_" + a + "__" + b
}

// attachToHyper aggregates a hidden real edge into the hyperedge between
// the two visible representatives, creating the hyperedge on first use.
// The hyperedge keeps the direction of the first edge it aggregates.
func (s *VisualizationState) attachToHyper(e *model.Edge, srcRep, dstRep string) {
	id := hyperIDFor(srcRep, dstRep)
	h := s.hyperEdges[id]
	if h == nil {
		h = &model.HyperEdge{
			ID:     id,
			Source: srcRep,
			Target: dstRep,
			Style:  e.Style,
			Type:   model.TypeHyper,
		}
		s.hyperEdges[id] = h
		s.hyperUnderlying[id] = make(map[string]bool)
	}
	s.hyperUnderlying[id][e.ID] = true
	s.edgeHyper[e.ID] = id
}

// detachFromHyper removes a real edge from the hyperedge masking it. A
// hyperedge left with no underlying edges is destroyed, so no aggregate
// can outlive the collapse that produced it.
func (s *VisualizationState) detachFromHyper(edgeID string) {
	hid, ok := s.edgeHyper[edgeID]
	if !ok {
		return
	}
	delete(s.edgeHyper, edgeID)
	underlying := s.hyperUnderlying[hid]
	delete(underlying, edgeID)
	if len(underlying) == 0 {
		delete(s.hyperUnderlying, hid)
		delete(s.hyperEdges, hid)
		delete(s.edgeLayout, hid)
	}
}

// UnderlyingEdges returns the real edge IDs a hyperedge currently
// aggregates. Nil for unknown IDs.
func (s *VisualizationState) UnderlyingEdges(hyperID string) []string {
	set := s.hyperUnderlying[hyperID]
	if set == nil {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// CollapseContainer collapses a container: every descendant is hidden,
// descendant containers are forced collapsed, crossing edges are replaced
// by hyperedges, and the container shrinks to the fixed collapsed size.
// Any manual toggle permanently disarms the smart-collapse heuristic for
// the current dataset. Unknown IDs are a silent no-op; the call is queued
// if a layout computation is outstanding.
func (s *VisualizationState) CollapseContainer(id string) error {
	if s.enqueueIfLocked(func() error { return s.CollapseContainer(id) }) {
		return nil
	}
	if s.containers[id] == nil {
		return nil
	}
	if err := s.beforeMutation(); err != nil {
		return err
	}
	s.smartCollapseArmed = false
	return s.collapseContainer(id)
}

func (s *VisualizationState) collapseContainer(id string) error {
	c := s.containers[id]
	if c == nil || c.Collapsed {
		return nil
	}
	return s.WithoutValidation(func() error {
		dims := model.Dimensions{Width: c.Width, Height: c.Height}
		c.ExpandedDimensions = &dims
		s.cascadeCollapse(c)
		c.Collapsed = true
		c.Width, c.Height = model.CollapsedWidth, model.CollapsedHeight
		s.updateContainerVisibilityCaches(id)
		s.rerouteSubtree(id)
		logging.Debug("container collapsed", "id", id)
		return nil
	})
}

// CollapseContainerPreset collapses a container as part of loading a
// document. Unlike CollapseContainer it does not count as a manual
// operation, so the smart-collapse heuristic stays armed for the first
// layout of the new data.
func (s *VisualizationState) CollapseContainerPreset(id string) error {
	return s.collapseContainer(id)
}

// cascadeCollapse hides every descendant and forces descendant containers
// collapsed, remembering each container's pre-cascade collapsed flag so a
// later expansion can restore it.
func (s *VisualizationState) cascadeCollapse(c *model.Container) {
	for _, childID := range c.Children {
		if child := s.containers[childID]; child != nil {
			if _, recorded := s.priorCollapsed[childID]; !recorded {
				s.priorCollapsed[childID] = child.Collapsed
			}
			if !child.Collapsed {
				dims := model.Dimensions{Width: child.Width, Height: child.Height}
				child.ExpandedDimensions = &dims
				child.Collapsed = true
				child.Width, child.Height = model.CollapsedWidth, model.CollapsedHeight
			}
			child.Hidden = true
			s.updateContainerVisibilityCaches(childID)
			s.cascadeCollapse(child)
			continue
		}
		if n := s.nodes[childID]; n != nil {
			s.setNodeHidden(n, true)
		}
	}
}

// ExpandContainer expands a collapsed container, revealing its immediate
// children. Child containers return to their own pre-collapse state rather
// than being force-expanded. Expanding a hidden container expands its
// ancestor chain first, so the illegal expanded-and-hidden state is never
// observable. Unknown IDs are a silent no-op; the call is queued while a
// layout computation is outstanding.
func (s *VisualizationState) ExpandContainer(id string) error {
	if s.enqueueIfLocked(func() error { return s.ExpandContainer(id) }) {
		return nil
	}
	if s.containers[id] == nil {
		return nil
	}
	if err := s.beforeMutation(); err != nil {
		return err
	}
	s.smartCollapseArmed = false
	return s.expandContainer(id, false)
}

// ExpandContainerRecursive expands a container and every container beneath
// it, regardless of their remembered states.
func (s *VisualizationState) ExpandContainerRecursive(id string) error {
	if s.enqueueIfLocked(func() error { return s.ExpandContainerRecursive(id) }) {
		return nil
	}
	if s.containers[id] == nil {
		return nil
	}
	s.smartCollapseArmed = false
	return s.expandContainer(id, true)
}

func (s *VisualizationState) expandContainer(id string, recursive bool) error {
	c := s.containers[id]
	if c == nil || !c.Collapsed {
		return nil
	}
	// Expanding a hidden container implicitly expands its ancestors, so
	// edges must be re-derived from the highest container that changes.
	top := id
	for s.containers[top] != nil && s.containers[top].Hidden && s.containerParent[top] != "" {
		top = s.containerParent[top]
	}
	return s.WithoutValidation(func() error {
		s.expandLocked(c, recursive)
		s.rerouteSubtree(top)
		logging.Debug("container expanded", "id", id, "recursive", recursive)
		return nil
	})
}

// expandLocked performs the expansion state changes without edge rerouting
// or validation; callers own both.
func (s *VisualizationState) expandLocked(c *model.Container, recursive bool) {
	if c.Hidden {
		if p := s.containers[s.containerParent[c.ID]]; p != nil && p.Collapsed {
			s.expandLocked(p, false)
		}
		c.Hidden = false
	}
	c.Collapsed = false
	if c.ExpandedDimensions != nil {
		c.Width, c.Height = c.ExpandedDimensions.Width, c.ExpandedDimensions.Height
	}
	s.updateContainerVisibilityCaches(c.ID)
	for _, childID := range c.Children {
		if child := s.containers[childID]; child != nil {
			child.Hidden = false
			prior, recorded := s.priorCollapsed[childID]
			delete(s.priorCollapsed, childID)
			if recursive {
				prior = false
			} else if !recorded {
				prior = true
			}
			if prior {
				s.updateContainerVisibilityCaches(childID)
			} else {
				s.expandLocked(child, recursive)
			}
			continue
		}
		if n := s.nodes[childID]; n != nil {
			s.setNodeHidden(n, false)
		}
	}
}

// ToggleContainer collapses an expanded container and expands a collapsed
// one.
func (s *VisualizationState) ToggleContainer(id string) error {
	c := s.containers[id]
	if c == nil {
		return nil
	}
	if c.Collapsed {
		return s.ExpandContainer(id)
	}
	return s.CollapseContainer(id)
}

// CollapseAllContainers collapses every top-level container, relying on the
// single-container transition to cascade. Validation is suspended for the
// duration and runs once at the end.
func (s *VisualizationState) CollapseAllContainers() error {
	if s.enqueueIfLocked(s.CollapseAllContainers) {
		return nil
	}
	s.smartCollapseArmed = false
	return s.WithoutValidation(func() error {
		for _, id := range s.containerOrder {
			if s.containerParent[id] != "" {
				continue
			}
			if err := s.collapseContainer(id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExpandAllContainers expands every top-level container recursively.
// Validation is suspended for the duration and runs once at the end.
func (s *VisualizationState) ExpandAllContainers() error {
	if s.enqueueIfLocked(s.ExpandAllContainers) {
		return nil
	}
	s.smartCollapseArmed = false
	return s.WithoutValidation(func() error {
		for _, id := range s.containerOrder {
			if s.containerParent[id] != "" {
				continue
			}
			if err := s.expandContainer(id, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// SmartCollapseArmed reports whether the first-layout auto-collapse
// heuristic is still active for the current dataset.
func (s *VisualizationState) SmartCollapseArmed() bool { return s.smartCollapseArmed }

// ApplySmartCollapse auto-collapses containers whose immediate child count
// exceeds the threshold (<=0 selects the default). It fires at most once
// per dataset and only if no manual container operation has happened since
// the data was loaded. Returns the number of containers collapsed.
func (s *VisualizationState) ApplySmartCollapse(threshold int) (int, error) {
	if !s.smartCollapseArmed {
		return 0, nil
	}
	s.smartCollapseArmed = false
	if threshold <= 0 {
		threshold = model.SmartCollapseChildThreshold
	}
	count := 0
	err := s.WithoutValidation(func() error {
		for _, id := range s.containerOrder {
			c := s.containers[id]
			if c == nil || c.Hidden || c.Collapsed {
				continue
			}
			if len(c.Children) > threshold {
				if err := s.collapseContainer(id); err != nil {
					return err
				}
				count++
			}
		}
		return nil
	})
	if count > 0 {
		logging.Info("smart collapse applied", "containers", count, "threshold", threshold)
	}
	return count, err
}
