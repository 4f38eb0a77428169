// Package render translates the visualization state into the flat
// node/edge lists the rendering surface consumes, with globally unique
// render keys.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/ritzau/hydroscope/pkg/model"
	"github.com/ritzau/hydroscope/pkg/vis"
)

// Node is one renderable element: a leaf node or a container. A collapsed
// container renders as a single opaque node.
type Node struct {
	ID         string           `json:"id"`
	Label      string           `json:"label"`
	Container  bool             `json:"container"`
	Collapsed  bool             `json:"collapsed,omitempty"`
	Parent     string           `json:"parent,omitempty"`
	Style      string           `json:"style,omitempty"`
	Position   model.Position   `json:"position"`
	Dimensions model.Dimensions `json:"dimensions"`
}

// Edge is one renderable connection, real or aggregated.
type Edge struct {
	ID     string          `json:"id"`
	Source string          `json:"source"`
	Target string          `json:"target"`
	Style  string          `json:"style,omitempty"`
	Type   string          `json:"type"`
	Route  *model.EdgeRoute `json:"route,omitempty"`
}

// Payload is the complete frame handed to the rendering surface.
type Payload struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// BuildPayload flattens the visible slice of the state. Every render key
// must be globally unique; a collision anywhere in the frame is reported
// before the data reaches the renderer, because the renderer's
// reconciliation would silently corrupt on duplicates.
func BuildPayload(s *vis.VisualizationState) (*Payload, error) {
	p := &Payload{}
	seen := make(map[string]bool)

	for _, c := range s.VisibleContainers() {
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate render key %q", c.ID)
		}
		seen[c.ID] = true
		rn := Node{
			ID:        c.ID,
			Label:     c.Label,
			Container: true,
			Collapsed: c.Collapsed,
			Parent:    visibleParent(s, s.ParentContainer(c.ID)),
		}
		if l := s.GetContainerLayout(c.ID); l != nil {
			rn.Position, rn.Dimensions = l.Position, l.Dimensions
		} else {
			rn.Dimensions = model.Dimensions{Width: c.Width, Height: c.Height}
		}
		p.Nodes = append(p.Nodes, rn)
	}

	for _, n := range s.VisibleNodes() {
		if seen[n.ID] {
			return nil, fmt.Errorf("duplicate render key %q", n.ID)
		}
		seen[n.ID] = true
		rn := Node{
			ID:     n.ID,
			Label:  n.DisplayLabel(),
			Parent: visibleParent(s, s.OwningContainer(n.ID)),
			Style:  n.Style,
		}
		if l := s.GetNodeLayout(n.ID); l != nil {
			rn.Position, rn.Dimensions = l.Position, l.Dimensions
		} else {
			rn.Dimensions = model.Dimensions{Width: n.Width, Height: n.Height}
		}
		p.Nodes = append(p.Nodes, rn)
	}

	edges, err := s.VisibleEdges()
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate render key %q", e.ID)
		}
		seen[e.ID] = true
		p.Edges = append(p.Edges, Edge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			Style:  e.Style,
			Type:   e.Type,
			Route:  s.GetEdgeLayout(e.ID),
		})
	}
	return p, nil
}

func visibleParent(s *vis.VisualizationState, containerID string) string {
	if c := s.GetContainer(containerID); c != nil && !c.Hidden {
		return containerID
	}
	return ""
}

// cytoscapeElement wraps render data the way Cytoscape.js expects.
type cytoscapeElement struct {
	Data any `json:"data"`
}

type cytoscapeElements struct {
	Nodes []cytoscapeElement `json:"nodes"`
	Edges []cytoscapeElement `json:"edges"`
}

// ToCytoscapeJSON converts a payload to the Cytoscape.js elements format.
func (p *Payload) ToCytoscapeJSON() ([]byte, error) {
	elements := cytoscapeElements{
		Nodes: make([]cytoscapeElement, 0, len(p.Nodes)),
		Edges: make([]cytoscapeElement, 0, len(p.Edges)),
	}
	for _, n := range p.Nodes {
		elements.Nodes = append(elements.Nodes, cytoscapeElement{Data: n})
	}
	for _, e := range p.Edges {
		elements.Edges = append(elements.Edges, cytoscapeElement{Data: e})
	}
	out, err := json.Marshal(elements)
	if err != nil {
		return nil, fmt.Errorf("marshaling cytoscape elements: %w", err)
	}
	return out, nil
}
