// Command lockview is an interactive terminal dump of a lock table's
// live state: which transactions hold or wait on which locks, and
// whether Validate finds any invariant broken. It has no storage
// engine of its own to attach to, so it seeds a small demo workload
// against an in-memory Manager and lets you walk the result.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	world := buildDemoWorld()
	defer world.mgr.Close()

	p := tea.NewProgram(newModel(world), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "lockview: %v\n", err)
		os.Exit(1)
	}
}
