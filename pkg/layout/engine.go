// Package layout defines the request/response contract with the coordinate
// solver and ships a default layered engine built on gonum.
package layout

import (
	"context"

	"github.com/ritzau/hydroscope/pkg/model"
)

// NodeSpec describes one visible leaf node handed to the engine.
type NodeSpec struct {
	ID        string  `json:"id"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Container string  `json:"container,omitempty"` // immediate visible parent, "" = root
}

// ContainerSpec describes one visible container. A collapsed container is
// an opaque box: the engine lays it out like a leaf and never sees its
// contents.
type ContainerSpec struct {
	ID        string  `json:"id"`
	Parent    string  `json:"parent,omitempty"`
	Collapsed bool    `json:"collapsed"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// EdgeSpec describes one visible edge (real or aggregated).
type EdgeSpec struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Request is the engine input: the visible slice of the graph.
type Request struct {
	Nodes      []NodeSpec      `json:"nodes"`
	Containers []ContainerSpec `json:"containers"`
	Edges      []EdgeSpec      `json:"edges"`
}

// Placement is the solved position and size of one entity.
type Placement struct {
	Position   model.Position   `json:"position"`
	Dimensions model.Dimensions `json:"dimensions"`
}

// Result is the engine output, keyed by entity ID.
type Result struct {
	Nodes      map[string]Placement       `json:"nodes"`
	Containers map[string]Placement       `json:"containers"`
	Edges      map[string]model.EdgeRoute `json:"edges"`
}

// Engine is the black-box coordinate solver. Layout is the single await
// point in the pipeline; implementations must honor ctx cancellation.
type Engine interface {
	Name() string
	Layout(ctx context.Context, req *Request) (*Result, error)
}
