package model

// Entity type tags used in render payloads and validation messages.
const (
	TypeGraph = "graph" // real edges
	TypeHyper = "hyper" // aggregated edges
)

// Rendered size of a collapsed container. Collapsed containers are drawn
// as single opaque nodes regardless of their content.
const (
	CollapsedWidth  = 120.0
	CollapsedHeight = 40.0
)

// Label-aware sizing constants.
const (
	LabelCharWidth   = 7.5
	LabelPadding     = 24.0
	MinNodeWidth     = 80.0
	MinNodeHeight    = 32.0
	MinContainerSize = 160.0
)

// MaxCollapsedExtent is the sanity ceiling for a collapsed container's
// rendered size. Exceeding it is a layout-quality warning, not an error.
const MaxCollapsedExtent = 400.0

// SmartCollapseChildThreshold is the child count above which a container
// is auto-collapsed on the first layout pass.
const SmartCollapseChildThreshold = 8

// Position is an absolute or container-relative coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions is a rendered width/height pair.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EdgeRoute is the routing polyline a layout engine assigns to an edge.
type EdgeRoute struct {
	Points []Position `json:"points"`
}

// Node is a leaf element of the graph.
type Node struct {
	ID               string  `json:"id"`
	Label            string  `json:"label"`
	ShortLabel       string  `json:"shortLabel,omitempty"`
	FullLabel        string  `json:"fullLabel,omitempty"`
	ShowingLongLabel bool    `json:"showingLongLabel,omitempty"`
	Hidden           bool    `json:"hidden"`
	Style            string  `json:"style,omitempty"`
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
}

// DisplayLabel returns the label currently selected by the long-label toggle.
func (n *Node) DisplayLabel() string {
	if n.ShowingLongLabel && n.FullLabel != "" {
		return n.FullLabel
	}
	if !n.ShowingLongLabel && n.ShortLabel != "" {
		return n.ShortLabel
	}
	return n.Label
}

// Edge is a directed connection between two node or container IDs.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Hidden bool   `json:"hidden"`
	Style  string `json:"style,omitempty"`
	Type   string `json:"type"` // TypeGraph
}

// Container groups nodes and/or nested containers. A collapsed container
// renders as a single opaque node and hides everything beneath it.
type Container struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Collapsed bool     `json:"collapsed"`
	Hidden    bool     `json:"hidden"`
	Children  []string `json:"children"` // insertion order, nodes and containers mixed
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`

	// ExpandedDimensions remembers the content-driven size so it can be
	// restored when the container expands again.
	ExpandedDimensions *Dimensions `json:"expandedDimensions,omitempty"`
}

// HyperEdge is a synthetic edge standing in for one or more real edges
// whose true endpoint is hidden inside a collapsed container.
type HyperEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Hidden bool   `json:"hidden"`
	Style  string `json:"style,omitempty"`
	Type   string `json:"type"` // TypeHyper
}

// LabelDimensions computes a label-fitting size with the given minimums.
func LabelDimensions(label string, minW, minH float64) Dimensions {
	w := float64(len(label))*LabelCharWidth + LabelPadding
	if w < minW {
		w = minW
	}
	return Dimensions{Width: w, Height: minH}
}
