package layout

import (
	"context"
	"fmt"

	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/vis"
)

// Runner bridges the visualization state and a layout engine: it builds
// the engine request from the visible entities, awaits the engine, and
// writes the solved geometry back. The state's layout lock is held for the
// whole round trip, so container toggles arriving mid-computation are
// queued and replayed afterwards instead of racing the stale geometry.
type Runner struct {
	Engine                Engine
	SmartCollapseThreshold int
}

// NewRunner creates a runner with the default smart-collapse threshold.
func NewRunner(engine Engine) *Runner {
	return &Runner{Engine: engine}
}

// Run performs one layout pass. The smart-collapse heuristic fires here,
// before the first pass over freshly loaded data, and never again until
// new data arrives.
func (r *Runner) Run(ctx context.Context, s *vis.VisualizationState) error {
	if s.SmartCollapseArmed() {
		if _, err := s.ApplySmartCollapse(r.SmartCollapseThreshold); err != nil {
			return fmt.Errorf("smart collapse before layout: %w", err)
		}
	}

	req, err := BuildRequest(s)
	if err != nil {
		return err
	}

	s.LockLayout()
	defer s.UnlockLayout()

	res, err := r.Engine.Layout(ctx, req)
	if err != nil {
		return fmt.Errorf("layout engine %s: %w", r.Engine.Name(), err)
	}
	applyResult(s, res)
	logging.Debug("layout applied",
		"engine", r.Engine.Name(),
		"nodes", len(res.Nodes), "containers", len(res.Containers), "edges", len(res.Edges))
	return nil
}

// BuildRequest translates the state's visible slice into the engine's
// representation: visible nodes with sizes, visible containers with
// nesting and collapsed flags, and the union of visible real and
// aggregated edges.
func BuildRequest(s *vis.VisualizationState) (*Request, error) {
	req := &Request{}
	for _, n := range s.VisibleNodes() {
		spec := NodeSpec{ID: n.ID, Width: n.Width, Height: n.Height}
		if c := s.GetContainer(s.OwningContainer(n.ID)); c != nil && !c.Hidden {
			spec.Container = c.ID
		}
		req.Nodes = append(req.Nodes, spec)
	}
	for _, c := range s.VisibleContainers() {
		dims := s.AdjustedContainerDimensions(c.ID)
		spec := ContainerSpec{
			ID:        c.ID,
			Collapsed: c.Collapsed,
			Width:     dims.Width,
			Height:    dims.Height,
		}
		if p := s.GetContainer(s.ParentContainer(c.ID)); p != nil && !p.Hidden {
			spec.Parent = p.ID
		}
		req.Containers = append(req.Containers, spec)
	}
	edges, err := s.VisibleEdges()
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		req.Edges = append(req.Edges, EdgeSpec{ID: e.ID, Source: e.Source, Target: e.Target})
	}
	return req, nil
}

func applyResult(s *vis.VisualizationState, res *Result) {
	for id, p := range res.Nodes {
		s.SetNodeLayout(id, p.Position, p.Dimensions)
	}
	for id, p := range res.Containers {
		s.SetContainerLayout(id, p.Position, p.Dimensions)
	}
	for id, route := range res.Edges {
		s.SetEdgeLayout(id, route)
	}
}

