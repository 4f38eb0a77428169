package vis

import (
	"fmt"
	"strings"

	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/model"
)

// ValidationLevel controls how aggressively invariants are enforced after
// public mutations.
type ValidationLevel int

const (
	// ValidationOff disables all checking.
	ValidationOff ValidationLevel = iota
	// ValidationRelaxed logs violations as warnings instead of failing.
	ValidationRelaxed
	// ValidationNormal fails on invariant violations after each mutation.
	ValidationNormal
	// ValidationStrict additionally validates before each mutation.
	ValidationStrict
)

func (l ValidationLevel) String() string {
	switch l {
	case ValidationOff:
		return "off"
	case ValidationRelaxed:
		return "relaxed"
	case ValidationNormal:
		return "normal"
	case ValidationStrict:
		return "strict"
	}
	return fmt.Sprintf("ValidationLevel(%d)", int(l))
}

// ParseValidationLevel maps a config string to a level; unknown strings
// fall back to Normal.
func ParseValidationLevel(s string) ValidationLevel {
	switch strings.ToLower(s) {
	case "off":
		return ValidationOff
	case "relaxed":
		return ValidationRelaxed
	case "strict":
		return ValidationStrict
	default:
		return ValidationNormal
	}
}

// Violation codes.
const (
	ViolationExpandedHidden    = "expanded-hidden-container"
	ViolationCollapseCascade   = "collapse-cascade"
	ViolationAncestorHidden    = "visible-under-hidden-ancestor"
	ViolationMissingEndpoint   = "missing-edge-endpoint"
	ViolationHiddenEndpoint    = "visible-edge-hidden-endpoint"
	ViolationDuplicateEdgeID   = "duplicate-edge-id"
	ViolationOversizeCollapsed = "oversize-collapsed-container" // warning-level
)

// Violation describes a single broken invariant.
type Violation struct {
	Code     string `json:"code"`
	EntityID string `json:"entityId"`
	Message  string `json:"message"`
}

// ValidationError carries every violation found in one pass, so a failing
// test or developer sees the full picture at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state validation failed with %d violation(s):", len(e.Violations))
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  [%s] %s: %s", v.Code, v.EntityID, v.Message)
	}
	return b.String()
}

// SetValidationLevel switches the enforcement level.
func (s *VisualizationState) SetValidationLevel(level ValidationLevel) {
	s.level = level
}

// ValidationLevelSetting returns the current enforcement level.
func (s *VisualizationState) ValidationLevelSetting() ValidationLevel { return s.level }

// WithoutValidation runs fn with invariant checking suspended, restoring it
// afterwards even if fn fails or panics, and then runs exactly one final
// validation pass once the outermost suspension releases.
func (s *VisualizationState) WithoutValidation(fn func() error) (err error) {
	s.suspended++
	defer func() {
		s.suspended--
		if err == nil && s.suspended == 0 {
			err = s.afterMutation()
		}
	}()
	return fn()
}

// afterMutation is the hook every public mutator ends with.
func (s *VisualizationState) afterMutation() error {
	if s.suspended > 0 || s.level == ValidationOff {
		return nil
	}
	return s.runValidation()
}

// beforeMutation is checked by mutators under Strict validation.
func (s *VisualizationState) beforeMutation() error {
	if s.suspended > 0 || s.level != ValidationStrict {
		return nil
	}
	return s.runValidation()
}

// runValidation checks the full invariant set and collects every violation
// before reporting.
func (s *VisualizationState) runValidation() error {
	var violations []Violation

	for id, c := range s.containers {
		if !c.Collapsed && c.Hidden {
			violations = append(violations, Violation{
				Code:     ViolationExpandedHidden,
				EntityID: id,
				Message:  "container is expanded and hidden at the same time",
			})
		}
		if c.Collapsed {
			violations = append(violations, s.checkCollapseCascade(id, c)...)
		}
		if !c.Hidden {
			if p := s.containers[s.containerParent[id]]; p != nil && p.Hidden {
				violations = append(violations, Violation{
					Code:     ViolationAncestorHidden,
					EntityID: id,
					Message:  fmt.Sprintf("visible container nested under hidden container %q", p.ID),
				})
			}
		}
		if c.Collapsed && !c.Hidden &&
			(c.Width > model.MaxCollapsedExtent || c.Height > model.MaxCollapsedExtent) {
			// Soft layout-quality signal, never fatal.
			logging.Warn("collapsed container abnormally large",
				"id", id, "width", c.Width, "height", c.Height)
		}
	}

	for id, e := range s.edges {
		violations = append(violations, s.checkEdgeEndpoints(id, e.Source, e.Target, e.Hidden)...)
	}
	for id, h := range s.hyperEdges {
		violations = append(violations, s.checkEdgeEndpoints(id, h.Source, h.Target, h.Hidden)...)
		if _, collides := s.edges[id]; collides {
			violations = append(violations, Violation{
				Code:     ViolationDuplicateEdgeID,
				EntityID: id,
				Message:  "hyperedge ID collides with a real edge ID",
			})
		}
	}

	if len(violations) == 0 {
		return nil
	}
	verr := &ValidationError{Violations: violations}
	if s.level == ValidationRelaxed {
		logging.Warn("invariant violations (relaxed mode)", "count", len(violations), "first", violations[0].Message)
		return nil
	}
	return verr
}

// checkCollapseCascade verifies every descendant of a collapsed container
// is hidden and every descendant container is itself collapsed.
func (s *VisualizationState) checkCollapseCascade(id string, c *model.Container) []Violation {
	var out []Violation
	nodes, containers := s.containerDescendants(id)
	for _, nodeID := range nodes {
		if n := s.nodes[nodeID]; n != nil && !n.Hidden {
			out = append(out, Violation{
				Code:     ViolationCollapseCascade,
				EntityID: nodeID,
				Message:  fmt.Sprintf("node visible under collapsed container %q", id),
			})
		}
	}
	for _, childID := range containers {
		child := s.containers[childID]
		if child == nil {
			continue
		}
		if !child.Hidden || !child.Collapsed {
			out = append(out, Violation{
				Code:     ViolationCollapseCascade,
				EntityID: childID,
				Message:  fmt.Sprintf("container not hidden+collapsed under collapsed container %q", id),
			})
		}
	}
	return out
}

// checkEdgeEndpoints verifies endpoint existence and, for visible edges,
// endpoint visibility.
func (s *VisualizationState) checkEdgeEndpoints(id, source, target string, hidden bool) []Violation {
	var out []Violation
	for _, endpoint := range []string{source, target} {
		visible, exists := s.endpointVisible(endpoint)
		if !exists {
			out = append(out, Violation{
				Code:     ViolationMissingEndpoint,
				EntityID: id,
				Message:  fmt.Sprintf("edge references unknown endpoint %q", endpoint),
			})
			continue
		}
		if !hidden && !visible {
			out = append(out, Violation{
				Code:     ViolationHiddenEndpoint,
				EntityID: id,
				Message:  fmt.Sprintf("visible edge references hidden endpoint %q", endpoint),
			})
		}
	}
	return out
}

// endpointVisible reports (visible, exists) for a node or container ID.
func (s *VisualizationState) endpointVisible(id string) (bool, bool) {
	if n := s.nodes[id]; n != nil {
		return !n.Hidden, true
	}
	if c := s.containers[id]; c != nil {
		return !c.Hidden, true
	}
	return false, false
}

// Validate runs a full invariant pass on demand, regardless of suspension.
func (s *VisualizationState) Validate() error {
	if s.level == ValidationOff {
		return nil
	}
	return s.runValidation()
}
