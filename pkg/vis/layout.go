package vis

import (
	"github.com/ritzau/hydroscope/pkg/model"
)

// SetNodeLayout stores a layout engine result for a node. Unknown IDs are a
// silent no-op.
func (s *VisualizationState) SetNodeLayout(id string, pos model.Position, dims model.Dimensions) {
	if s.nodes[id] == nil {
		return
	}
	s.nodeLayout[id] = &EntityLayout{Position: pos, Dimensions: dims}
}

// SetContainerLayout stores a layout engine result for a container.
func (s *VisualizationState) SetContainerLayout(id string, pos model.Position, dims model.Dimensions) {
	if s.containers[id] == nil {
		return
	}
	s.containerLayout[id] = &EntityLayout{Position: pos, Dimensions: dims}
}

// SetEdgeLayout stores an edge routing polyline for a real or aggregated
// edge.
func (s *VisualizationState) SetEdgeLayout(id string, route model.EdgeRoute) {
	if s.edges[id] == nil && s.hyperEdges[id] == nil {
		return
	}
	s.edgeLayout[id] = &route
}

// GetNodeLayout returns the stored layout for a node, or nil.
func (s *VisualizationState) GetNodeLayout(id string) *EntityLayout { return s.nodeLayout[id] }

// GetContainerLayout returns the stored layout for a container, or nil.
func (s *VisualizationState) GetContainerLayout(id string) *EntityLayout {
	return s.containerLayout[id]
}

// GetEdgeLayout returns the stored routing for an edge, or nil.
func (s *VisualizationState) GetEdgeLayout(id string) *model.EdgeRoute { return s.edgeLayout[id] }

// AdjustedContainerDimensions returns the size the container should be laid
// out with: the fixed collapsed size (widened if the label would not fit)
// when collapsed, otherwise the content-driven size with a label-aware
// minimum.
func (s *VisualizationState) AdjustedContainerDimensions(id string) model.Dimensions {
	c := s.containers[id]
	if c == nil {
		return model.Dimensions{}
	}
	if c.Collapsed {
		dims := model.LabelDimensions(c.Label, model.CollapsedWidth, model.CollapsedHeight)
		if dims.Width > model.MaxCollapsedExtent {
			dims.Width = model.MaxCollapsedExtent
		}
		return dims
	}
	dims := model.LabelDimensions(c.Label, model.MinContainerSize, model.MinContainerSize)
	if c.Width > dims.Width {
		dims.Width = c.Width
	}
	if c.Height > dims.Height {
		dims.Height = c.Height
	}
	return dims
}
