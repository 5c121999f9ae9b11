package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/citadel-raid/raidnav/internal/geo"
	"github.com/citadel-raid/raidnav/pkg/core"
)

// printPath is the path command.
func printPath(args []string, out io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: raidnav path <x> <y> [in|out]")
		return exitSetupError
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(out, "invalid x %q: %v\n", args[0], err)
		return exitSetupError
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		fmt.Fprintf(out, "invalid y %q: %v\n", args[1], err)
		return exitSetupError
	}
	direction := core.Inbound
	if len(args) > 2 {
		if direction, err = core.ParseDirection(args[2]); err != nil {
			fmt.Fprintln(out, err)
			return exitSetupError
		}
	}

	_, finder, _, err := buildGrid()
	if err != nil {
		fmt.Fprintln(out, err)
		return exitSetupError
	}

	from := core.Position3D{X: x, Y: y}
	plan, err := finder.FindPath(from, direction)
	if err != nil {
		fmt.Fprintf(out, "no path from (%.1f, %.1f): %v\n", x, y, err)
		return exitOK
	}

	fmt.Fprintf(out, "%s path from (%.1f, %.1f), bearing %.1f°, %d tiles\n",
		direction, x, y, geo.Bearing(from), plan.Len())
	for i, t := range plan.Tiles() {
		p := t.Position()
		fmt.Fprintf(out, "%3d  %-8s  (%8.2f, %8.2f)\n", i, t.Cell(), p.X, p.Y)
	}
	return exitOK
}

// printPorts is the ports command.
func printPorts(out io.Writer) int {
	_, _, alloc, err := buildGrid()
	if err != nil {
		fmt.Fprintln(out, err)
		return exitSetupError
	}
	for _, p := range alloc.Ports() {
		fmt.Fprintf(out, "%3d  %6.1f°  (%8.2f, %8.2f)\n", p.ID, p.Bearing, p.Position.X, p.Position.Y)
	}
	return exitOK
}
