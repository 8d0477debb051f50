package vgroup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/ddgroups/pkg/diagram"
)

// GroupInfo is a read-only view of a group and its subtree.
type GroupInfo struct {
	Range    Range
	IdxLow   int
	Chunk    int
	Physical bool
	Block    diagram.BlockID
	Handles  []Handle
	Children []GroupInfo
}

// Roots returns the forest, roots in ascending level order.
func (a *Allocator) Roots() []GroupInfo {
	out := make([]GroupInfo, 0, len(a.roots))

	for _, id := range a.roots {
		out = append(out, a.info(id))
	}

	return out
}

func (a *Allocator) info(id groupID) GroupInfo {
	g := &a.groups[id]

	gi := GroupInfo{
		Range:    g.bounds(),
		IdxLow:   g.idxLow,
		Chunk:    g.chunk,
		Physical: g.physical,
		Block:    g.block,
		Handles:  slices.Clone(g.handles),
	}

	for _, child := range g.children {
		gi.Children = append(gi.Children, a.info(child))
	}

	return gi
}

// String renders one group line of the dump.
func (gi GroupInfo) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%d,%d] chunk=%d idx=%d", gi.Range.Low, gi.Range.High, gi.Chunk, gi.IdxLow)

	if gi.Physical {
		fmt.Fprintf(&sb, " block=%d", gi.Block)
	}

	fmt.Fprintf(&sb, " handles=%v", gi.Handles)

	return sb.String()
}

// DebugDump renders the forest as an indented tree followed by a table of
// live handles. The output is for diagnostics only.
func (a *Allocator) DebugDump() string {
	var sb strings.Builder

	if len(a.roots) == 0 {
		sb.WriteString("(empty forest)\n")
	} else {
		lw := list.NewWriter()
		lw.SetStyle(list.StyleConnectedLight)

		for _, root := range a.Roots() {
			appendInfo(lw, root)
		}

		sb.WriteString(lw.Render())
		sb.WriteString("\n")
	}

	if len(a.handles) == 0 {
		return sb.String()
	}

	handles := make([]Handle, 0, len(a.handles))
	for h := range a.handles {
		handles = append(handles, h)
	}

	slices.Sort(handles)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"handle", "low", "high", "state"})

	for _, h := range handles {
		rec := a.handles[h]

		state := "live"
		if rec.group == noGroup {
			state = "invalidated"
		}

		tw.AppendRow(table.Row{h, rec.cached.Low, rec.cached.High, state})
	}

	sb.WriteString(tw.Render())
	sb.WriteString("\n")

	return sb.String()
}

func appendInfo(lw list.Writer, gi GroupInfo) {
	lw.AppendItem(gi.String())

	if len(gi.Children) == 0 {
		return
	}

	lw.Indent()

	for _, child := range gi.Children {
		appendInfo(lw, child)
	}

	lw.UnIndent()
}
