package vis

import (
	"strings"
)

// SearchMatch is one hit of a label search.
type SearchMatch struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Container bool   `json:"container"`
	ParentID  string `json:"parentId,omitempty"`
}

// Search finds nodes and containers whose label contains the query,
// case-insensitively. Matches come back in depth-first tree order: each
// container, then its child containers recursively, then its own leaf
// nodes. This is the order a hierarchical tree view renders, so the
// results list and the tree stay visually synchronized. Insertion order
// breaks ties within a level. Collapse state does not affect the
// ordering, only reachability.
func (s *VisualizationState) Search(query string) []SearchMatch {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var matches []SearchMatch
	for _, id := range s.containerOrder {
		if s.containerParent[id] != "" {
			continue
		}
		matches = s.searchContainer(id, query, matches)
	}
	for _, id := range s.nodeOrder {
		if _, owned := s.nodeContainer[id]; owned {
			continue
		}
		matches = s.appendNodeMatch(id, query, matches)
	}
	return matches
}

func (s *VisualizationState) searchContainer(id, query string, matches []SearchMatch) []SearchMatch {
	c := s.containers[id]
	if c == nil {
		return matches
	}
	if s.labelMatches(c.Label, "", query) {
		matches = append(matches, SearchMatch{
			ID:        id,
			Label:     c.Label,
			Container: true,
			ParentID:  s.containerParent[id],
		})
	}
	for _, childID := range c.Children {
		if _, isContainer := s.containers[childID]; isContainer {
			matches = s.searchContainer(childID, query, matches)
		}
	}
	for _, childID := range c.Children {
		if _, isContainer := s.containers[childID]; !isContainer {
			matches = s.appendNodeMatch(childID, query, matches)
		}
	}
	return matches
}

func (s *VisualizationState) appendNodeMatch(id, query string, matches []SearchMatch) []SearchMatch {
	n := s.nodes[id]
	if n == nil {
		return matches
	}
	if !s.labelMatches(n.Label, n.FullLabel, query) {
		return matches
	}
	return append(matches, SearchMatch{
		ID:       id,
		Label:    n.Label,
		ParentID: s.nodeContainer[id],
	})
}

func (s *VisualizationState) labelMatches(label, fullLabel, query string) bool {
	if strings.Contains(strings.ToLower(label), query) {
		return true
	}
	return fullLabel != "" && strings.Contains(strings.ToLower(fullLabel), query)
}

// SearchExpansionKeys computes the minimal container set a tree view must
// expand to reveal every match: for a container match, the match itself
// plus its ancestor chain; for a node match, the ancestor chain of its
// owning container. With no matches it returns the currently expanded
// containers, so the view expands nothing new.
func (s *VisualizationState) SearchExpansionKeys(matches []SearchMatch) []string {
	if len(matches) == 0 {
		out := make([]string, 0, len(s.containers))
		for _, id := range s.containerOrder {
			if c := s.containers[id]; c != nil && !c.Collapsed {
				out = append(out, id)
			}
		}
		return out
	}
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, m := range matches {
		if m.Container {
			add(m.ID)
			for _, anc := range s.containerAncestors(m.ID) {
				add(anc)
			}
			continue
		}
		if owner := s.nodeContainer[m.ID]; owner != "" {
			add(owner)
			for _, anc := range s.containerAncestors(owner) {
				add(anc)
			}
		}
	}
	return out
}

// ExpandForSearch force-expands the ancestor chains of the given matches so
// each match is reachable, leaving unrelated containers untouched.
func (s *VisualizationState) ExpandForSearch(matches []SearchMatch) error {
	return s.WithoutValidation(func() error {
		for _, m := range matches {
			target := m.ID
			if !m.Container {
				target = s.nodeContainer[m.ID]
			}
			if target == "" {
				continue
			}
			// Expand from the root down so every step is legal.
			chain := s.containerAncestors(target)
			for i := len(chain) - 1; i >= 0; i-- {
				if err := s.expandContainer(chain[i], false); err != nil {
					return err
				}
			}
			if err := s.expandContainer(target, false); err != nil {
				return err
			}
		}
		return nil
	})
}
