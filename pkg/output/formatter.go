package output

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/ritzau/hydroscope/pkg/vis"
)

// PrintSummary prints a colored console summary of the loaded visualization
func PrintSummary(input string, s *vis.VisualizationState) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Println("Hydroscope - Graph Summary")
	bold.Println("==========================")
	fmt.Printf("Input: %s\n", input)
	fmt.Printf("Nodes: %d (%d visible)\n", s.NodeCount(), len(s.VisibleNodes()))
	fmt.Printf("Edges: %d\n", s.EdgeCount())
	fmt.Printf("Containers: %d (%d visible)\n", s.ContainerCount(), len(s.VisibleContainers()))
	fmt.Println()

	// Collapse state
	collapsed := s.CollapsedContainerIDs()
	expanded := s.ExpandedContainerIDs()
	cyan.Printf("Expanded containers: %d\n", len(expanded))
	if len(collapsed) > 0 {
		yellow.Printf("Collapsed containers: %d\n", len(collapsed))
		for _, id := range collapsed {
			c := s.GetContainer(id)
			fmt.Printf("  %s (%d children)\n", c.Label, len(c.Children))
		}
	} else {
		fmt.Printf("Collapsed containers: 0\n")
	}
	if n := s.HyperEdgeCount(); n > 0 {
		cyan.Printf("Aggregated edges: %d\n", n)
	}
	fmt.Println()

	// Consistency check
	if err := s.Validate(); err != nil {
		var verr *vis.ValidationError
		red.Println("CONSISTENCY VIOLATIONS:")
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				yellow.Printf("  [%s] %s\n", v.Code, v.Message)
			}
		} else {
			yellow.Printf("  %v\n", err)
		}
		return
	}
	green.Println("✓ Visualization state is consistent")
}
