// Package parse is the single ingestion boundary for graph documents. It
// validates and normalizes loosely-typed JSON payloads into the strict
// internal representation before anything else touches them.
package parse

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/ritzau/hydroscope/pkg/logging"
	"github.com/ritzau/hydroscope/pkg/model"
	"github.com/ritzau/hydroscope/pkg/vis"
)

var validate = validator.New()

// Document is the bulk-load input format. Containers may be given either
// explicitly or through a hierarchy choice plus node assignments.
type Document struct {
	Nodes            []NodePayload                `json:"nodes" validate:"required,min=1,dive"`
	Edges            []EdgePayload                `json:"edges" validate:"dive"`
	Containers       []ContainerPayload           `json:"containers" validate:"dive"`
	HierarchyChoices []HierarchyChoice            `json:"hierarchyChoices,omitempty"`
	NodeAssignments  map[string]map[string]string `json:"nodeAssignments,omitempty"` // choice -> node -> group
}

// NodePayload is an untrusted node description.
type NodePayload struct {
	ID         string `json:"id" validate:"required"`
	Label      string `json:"label"`
	ShortLabel string `json:"shortLabel"`
	FullLabel  string `json:"fullLabel"`
	Style      string `json:"style"`
}

// EdgePayload is an untrusted edge description.
type EdgePayload struct {
	ID     string `json:"id" validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Style  string `json:"style"`
}

// ContainerPayload is an untrusted container description.
type ContainerPayload struct {
	ID        string   `json:"id" validate:"required"`
	Label     string   `json:"label"`
	Collapsed bool     `json:"collapsed"`
	Children  []string `json:"children"`
}

// HierarchyChoice names an alternative grouping of the same nodes.
type HierarchyChoice struct {
	ID     string           `json:"id" validate:"required"`
	Name   string           `json:"name"`
	Groups []GroupPayload   `json:"groups" validate:"dive"`
}

// GroupPayload is a container described by a hierarchy choice.
type GroupPayload struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

// Parse decodes and validates a graph document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding graph document: %w", err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid graph document: %w", err)
	}
	return &doc, nil
}

// Load resets the state and loads the document into it, using the named
// hierarchy choice when the document groups nodes that way (empty selects
// the first choice). Resetting re-arms smart collapse for the new data.
func Load(s *vis.VisualizationState, doc *Document, choiceID string) error {
	s.Reset()
	containers, assignments, err := resolveHierarchy(doc, choiceID)
	if err != nil {
		return err
	}
	err = s.WithoutValidation(func() error {
		for _, np := range doc.Nodes {
			label := np.Label
			if label == "" {
				label = np.ID
			}
			if err := s.AddNode(&model.Node{
				ID:         np.ID,
				Label:      label,
				ShortLabel: np.ShortLabel,
				FullLabel:  np.FullLabel,
				Style:      np.Style,
			}); err != nil {
				return err
			}
		}
		// Children lists may name containers that arrive later, so order
		// inside the containers slice does not matter.
		for _, cp := range containers {
			label := cp.Label
			if label == "" {
				label = cp.ID
			}
			children := cp.Children
			if extra := assignments[cp.ID]; len(extra) > 0 {
				children = append(append([]string{}, children...), extra...)
			}
			if err := s.AddContainer(&model.Container{
				ID:       cp.ID,
				Label:    label,
				Children: children,
			}); err != nil {
				return err
			}
		}
		for _, cp := range containers {
			if cp.Collapsed {
				if err := s.CollapseContainerPreset(cp.ID); err != nil {
					return err
				}
			}
		}
		for _, ep := range doc.Edges {
			if err := s.AddEdge(&model.Edge{
				ID:     ep.ID,
				Source: ep.Source,
				Target: ep.Target,
				Style:  ep.Style,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.Info("graph document loaded",
		"nodes", s.NodeCount(), "edges", s.EdgeCount(), "containers", s.ContainerCount())
	return nil
}

// resolveHierarchy turns a hierarchy choice plus node assignments into
// container payloads and per-container extra children. Explicit containers
// win over hierarchy choices.
func resolveHierarchy(doc *Document, choiceID string) ([]ContainerPayload, map[string][]string, error) {
	if len(doc.Containers) > 0 {
		return doc.Containers, nil, nil
	}
	if len(doc.HierarchyChoices) == 0 {
		return nil, nil, nil
	}
	choice := &doc.HierarchyChoices[0]
	if choiceID != "" {
		choice = nil
		for i := range doc.HierarchyChoices {
			if doc.HierarchyChoices[i].ID == choiceID {
				choice = &doc.HierarchyChoices[i]
				break
			}
		}
		if choice == nil {
			return nil, nil, fmt.Errorf("unknown hierarchy choice %q", choiceID)
		}
	}

	containers := make([]ContainerPayload, 0, len(choice.Groups))
	byID := make(map[string]int, len(choice.Groups))
	for _, g := range choice.Groups {
		byID[g.ID] = len(containers)
		containers = append(containers, ContainerPayload{ID: g.ID, Label: g.Name})
	}
	for _, g := range choice.Groups {
		if g.Parent == "" {
			continue
		}
		idx, ok := byID[g.Parent]
		if !ok {
			return nil, nil, fmt.Errorf("group %q references unknown parent %q", g.ID, g.Parent)
		}
		containers[idx].Children = append(containers[idx].Children, g.ID)
	}

	assignments := make(map[string][]string)
	for nodeID, groupID := range doc.NodeAssignments[choice.ID] {
		if _, ok := byID[groupID]; !ok {
			return nil, nil, fmt.Errorf("node %q assigned to unknown group %q", nodeID, groupID)
		}
		assignments[groupID] = append(assignments[groupID], nodeID)
	}
	// Map iteration order would otherwise leak into child order, which the
	// tree traversal depends on.
	for _, nodeIDs := range assignments {
		sort.Strings(nodeIDs)
	}
	return containers, assignments, nil
}
