package layout

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/hydroscope/pkg/model"
)

// Spacing constants for the layered engine.
const (
	layerGap         = 80.0
	siblingGap       = 40.0
	containerPadding = 30.0
	labelBand        = 28.0
)

// LayeredEngine is the built-in coordinate solver: left-to-right layered
// placement with cycle condensation and a single barycenter ordering pass.
// Expanded containers become bounding boxes around their members after the
// leaf pass; collapsed containers are laid out as opaque leaves.
type LayeredEngine struct{}

// NewLayeredEngine returns the default engine.
func NewLayeredEngine() LayeredEngine { return LayeredEngine{} }

func (LayeredEngine) Name() string { return "layered" }

// leaf is a layout vertex: a visible node or a collapsed container.
type leaf struct {
	id     string
	width  float64
	height float64
	layer  int
	order  int
}

func (LayeredEngine) Layout(ctx context.Context, req *Request) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	leaves, index := collectLeaves(req)
	g := simple.NewDirectedGraph()
	for i := range leaves {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range req.Edges {
		from, okFrom := index[e.Source]
		to, okTo := index[e.Target]
		if !okFrom || !okTo || from == to {
			continue
		}
		if !g.HasEdgeFromTo(int64(from), int64(to)) {
			g.SetEdge(g.NewEdge(simple.Node(int64(from)), simple.Node(int64(to))))
		}
	}

	assignLayers(g, leaves)
	orderLayers(g, leaves)

	res := &Result{
		Nodes:      make(map[string]Placement),
		Containers: make(map[string]Placement),
		Edges:      make(map[string]model.EdgeRoute),
	}
	placements := placeLeaves(leaves)

	for _, n := range req.Nodes {
		if p, ok := placements[n.ID]; ok {
			res.Nodes[n.ID] = p
		}
	}
	for _, c := range req.Containers {
		if c.Collapsed {
			if p, ok := placements[c.ID]; ok {
				res.Containers[c.ID] = p
			}
		}
	}
	boxExpandedContainers(req, placements, res)
	routeEdges(req, placements, res)
	return res, nil
}

// collectLeaves gathers the layout vertices: visible nodes plus collapsed
// containers.
func collectLeaves(req *Request) ([]*leaf, map[string]int) {
	var leaves []*leaf
	index := make(map[string]int)
	add := func(id string, w, h float64) {
		index[id] = len(leaves)
		leaves = append(leaves, &leaf{id: id, width: w, height: h})
	}
	for _, n := range req.Nodes {
		add(n.ID, n.Width, n.Height)
	}
	for _, c := range req.Containers {
		if c.Collapsed {
			add(c.ID, c.Width, c.Height)
		}
	}
	return leaves, index
}

// assignLayers computes a longest-path layering over the cycle-condensed
// graph, so vertices on a cycle share a layer instead of breaking the
// pass.
func assignLayers(g *simple.DirectedGraph, leaves []*leaf) {
	sccs := topo.TarjanSCC(g)
	comp := make(map[int64]int, len(leaves))
	for ci, scc := range sccs {
		for _, n := range scc {
			comp[n.ID()] = ci
		}
	}

	// Component DAG predecessors.
	preds := make(map[int]map[int]bool)
	edges := g.Edges()
	for edges.Next() {
		e := edges.Edge()
		cf, ct := comp[e.From().ID()], comp[e.To().ID()]
		if cf == ct {
			continue
		}
		if preds[ct] == nil {
			preds[ct] = make(map[int]bool)
		}
		preds[ct][cf] = true
	}

	// TarjanSCC returns components in reverse topological order.
	layer := make([]int, len(sccs))
	for ci := len(sccs) - 1; ci >= 0; ci-- {
		max := 0
		for p := range preds[ci] {
			if layer[p]+1 > max {
				max = layer[p] + 1
			}
		}
		layer[ci] = max
	}
	for i, l := range leaves {
		l.layer = layer[comp[int64(i)]]
	}
}

// orderLayers runs one barycenter pass, ordering each layer by the mean
// position of its predecessors in the previous layer. Ties keep ID order,
// which keeps the whole layout deterministic.
func orderLayers(g *simple.DirectedGraph, leaves []*leaf) {
	byLayer := make(map[int][]*leaf)
	maxLayer := 0
	for _, l := range leaves {
		byLayer[l.layer] = append(byLayer[l.layer], l)
		if l.layer > maxLayer {
			maxLayer = l.layer
		}
	}
	index := make(map[string]int, len(leaves))
	for i, l := range leaves {
		index[l.id] = i
	}

	for layer := 0; layer <= maxLayer; layer++ {
		ls := byLayer[layer]
		sort.Slice(ls, func(i, j int) bool { return ls[i].id < ls[j].id })
		if layer > 0 {
			bary := make(map[string]float64, len(ls))
			for _, l := range ls {
				sum, count := 0.0, 0
				preds := g.To(int64(index[l.id]))
				for preds.Next() {
					p := leaves[preds.Node().ID()]
					if p.layer == layer-1 {
						sum += float64(p.order)
						count++
					}
				}
				if count > 0 {
					bary[l.id] = sum / float64(count)
				} else {
					bary[l.id] = float64(len(ls))
				}
			}
			sort.SliceStable(ls, func(i, j int) bool { return bary[ls[i].id] < bary[ls[j].id] })
		}
		for i, l := range ls {
			l.order = i
		}
	}
}

// placeLeaves converts layer/order assignments into concrete coordinates.
func placeLeaves(leaves []*leaf) map[string]Placement {
	byLayer := make(map[int][]*leaf)
	maxLayer := 0
	for _, l := range leaves {
		byLayer[l.layer] = append(byLayer[l.layer], l)
		if l.layer > maxLayer {
			maxLayer = l.layer
		}
	}
	placements := make(map[string]Placement, len(leaves))
	x := 0.0
	for layer := 0; layer <= maxLayer; layer++ {
		ls := byLayer[layer]
		sort.Slice(ls, func(i, j int) bool { return ls[i].order < ls[j].order })
		maxWidth := 0.0
		y := 0.0
		for _, l := range ls {
			placements[l.id] = Placement{
				Position:   model.Position{X: x, Y: y},
				Dimensions: model.Dimensions{Width: l.width, Height: l.height},
			}
			y += l.height + siblingGap
			if l.width > maxWidth {
				maxWidth = l.width
			}
		}
		x += maxWidth + layerGap
	}
	return placements
}

// boxExpandedContainers grows each expanded container to the bounding box
// of its visible members, deepest containers first so parents enclose
// child boxes.
func boxExpandedContainers(req *Request, placements map[string]Placement, res *Result) {
	parent := make(map[string]string, len(req.Containers))
	collapsed := make(map[string]bool, len(req.Containers))
	for _, c := range req.Containers {
		parent[c.ID] = c.Parent
		collapsed[c.ID] = c.Collapsed
	}
	depth := func(id string) int {
		d := 0
		for p := parent[id]; p != ""; p = parent[p] {
			d++
		}
		return d
	}

	members := make(map[string][]string)
	for _, n := range req.Nodes {
		if n.Container != "" {
			members[n.Container] = append(members[n.Container], n.ID)
		}
	}
	for _, c := range req.Containers {
		if c.Parent != "" {
			members[c.Parent] = append(members[c.Parent], c.ID)
		}
	}

	var expanded []ContainerSpec
	for _, c := range req.Containers {
		if !c.Collapsed {
			expanded = append(expanded, c)
		}
	}
	sort.Slice(expanded, func(i, j int) bool { return depth(expanded[i].ID) > depth(expanded[j].ID) })

	for _, c := range expanded {
		minX, minY := 0.0, 0.0
		maxX, maxY := c.Width, c.Height
		first := true
		for _, memberID := range members[c.ID] {
			p, ok := placements[memberID]
			if !ok {
				if boxed, okBox := res.Containers[memberID]; okBox {
					p = boxed
					ok = true
				}
			}
			if !ok {
				continue
			}
			if first {
				minX, minY = p.Position.X, p.Position.Y
				maxX, maxY = p.Position.X+p.Dimensions.Width, p.Position.Y+p.Dimensions.Height
				first = false
				continue
			}
			minX = minFloat(minX, p.Position.X)
			minY = minFloat(minY, p.Position.Y)
			maxX = maxFloat(maxX, p.Position.X+p.Dimensions.Width)
			maxY = maxFloat(maxY, p.Position.Y+p.Dimensions.Height)
		}
		res.Containers[c.ID] = Placement{
			Position: model.Position{X: minX - containerPadding, Y: minY - containerPadding - labelBand},
			Dimensions: model.Dimensions{
				Width:  maxX - minX + 2*containerPadding,
				Height: maxY - minY + 2*containerPadding + labelBand,
			},
		}
	}
}

// routeEdges assigns straight center-to-center polylines.
func routeEdges(req *Request, placements map[string]Placement, res *Result) {
	lookup := func(id string) (Placement, bool) {
		if p, ok := placements[id]; ok {
			return p, true
		}
		p, ok := res.Containers[id]
		return p, ok
	}
	for _, e := range req.Edges {
		from, okFrom := lookup(e.Source)
		to, okTo := lookup(e.Target)
		if !okFrom || !okTo {
			continue
		}
		res.Edges[e.ID] = model.EdgeRoute{Points: []model.Position{
			{X: from.Position.X + from.Dimensions.Width/2, Y: from.Position.Y + from.Dimensions.Height/2},
			{X: to.Position.X + to.Dimensions.Width/2, Y: to.Position.Y + to.Dimensions.Height/2},
		}}
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
