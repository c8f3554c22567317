package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/blockfall/game/engine"
	"github.com/wricardo/blockfall/game/service"
)

const activeCell = '@'

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nSeed: %d\nGame time: %dms\n\n%s",
		info.ID, info.ConfigName, info.Seed, info.GameTimeMs, FormatSnapshot(info.Snapshot))
}

// FormatSnapshot renders the field top row first. Row numbers are printed
// on the left and column numbers underneath so coordinates can be read off
// directly.
func FormatSnapshot(snap *engine.Snapshot) string {
	if snap == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d | Lines: %d | Pieces: %d | State: %s | Gravity: %dms\n",
		snap.Score, snap.Lines, snap.Pieces, snap.State, snap.Interval.Milliseconds())
	if snap.Active != nil {
		c := snap.Active.Cells
		fmt.Fprintf(&b, "Active: %s at (%d,%d) (%d,%d) (%d,%d) (%d,%d)\n",
			snap.Active.Kind, c[0].X, c[0].Y, c[1].X, c[1].Y, c[2].X, c[2].Y, c[3].X, c[3].Y)
	} else {
		b.WriteString("Active: none\n")
	}
	b.WriteString("\n")

	for _, row := range gridRows(snap) {
		b.WriteString(row)
		b.WriteString("\n")
	}
	b.WriteString(columnRuler(snap.Width))

	if snap.Terminal {
		fmt.Fprintf(&b, "\nGAME OVER - final score %d", snap.Score)
	}
	return b.String()
}

// gridRows returns one line per row, top row first, each prefixed with
// its y coordinate.
func gridRows(snap *engine.Snapshot) []string {
	active := map[engine.Position]bool{}
	if snap.Active != nil {
		for _, c := range snap.Active.Cells {
			active[c] = true
		}
	}

	rows := make([]string, 0, snap.Height)
	for y := snap.Height - 1; y >= 0; y-- {
		var row strings.Builder
		fmt.Fprintf(&row, "%3d ", y)
		for x := 0; x < snap.Width; x++ {
			if active[engine.Position{X: x, Y: y}] {
				row.WriteRune(activeCell)
				continue
			}
			row.WriteString(snap.At(x, y).String())
		}
		rows = append(rows, row.String())
	}
	return rows
}

// columnRuler prints the last digit of each column index.
func columnRuler(width int) string {
	var b strings.Builder
	b.WriteString("    ")
	for x := 0; x < width; x++ {
		b.WriteByte(byte('0' + x%10))
	}
	return b.String()
}

func formatEvents(b *strings.Builder, events []service.GameEvent) {
	if len(events) == 0 {
		return
	}
	b.WriteString("Events:\n")
	for _, e := range events {
		fmt.Fprintf(b, "- %s: %s\n", e.Type, e.Message)
	}
}

func formatCommandResult(result *service.CommandResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ ")
	} else {
		b.WriteString("✗ ")
	}
	b.WriteString(result.Message)
	b.WriteString("\n")
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(FormatSnapshot(result.Snapshot))
	return b.String()
}

func formatBulkResult(sessionID string, result *service.BulkCommandResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	fmt.Fprintf(&b, "Executed %d/%d commands (%d accepted, %d rejected)\n",
		result.Executed, result.Requested, result.Accepted, result.Rejected)
	fmt.Fprintf(&b, "Score +%d, Lines +%d\n", result.ScoreDelta, result.LinesDelta)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on command %d: %s\n", result.StoppedOnCommand, result.StoppedReason)
	}

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, st := range result.Steps {
			status := "✓"
			if !st.Accepted {
				status = "✗"
			}
			fmt.Fprintf(&b, "%d. %s %s score=%d lines=%d\n", st.Idx+1, st.Command, status, st.Score, st.Lines)
		}
	}

	b.WriteString("\n")
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(FormatSnapshot(result.Snapshot))
	return b.String()
}

func formatAdvanceResult(result *service.AdvanceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Advanced %dms: %d ticks, %d falls\n", result.ElapsedMs, result.Ticks, result.Falls)
	if result.ElapsedMs < result.RequestedMs {
		fmt.Fprintf(&b, "Stopped early after %dms of %dms\n", result.ElapsedMs, result.RequestedMs)
	}
	formatEvents(&b, result.Events)
	b.WriteString("\n")
	b.WriteString(FormatSnapshot(result.Snapshot))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History (Page %d/%d) - Total: %d\n\n", history.Page, history.TotalPages, history.TotalEntries)

	for _, e := range history.Entries {
		status := "✓"
		if !e.Accepted {
			status = "✗"
		}
		switch e.Action {
		case service.ActionCommand:
			fmt.Fprintf(&b, "%d. %s %s", e.Seq, e.Command, status)
		case service.ActionAdvance:
			fmt.Fprintf(&b, "%d. advance %dms", e.Seq, e.AdvanceMs)
		default:
			fmt.Fprintf(&b, "%d. %s", e.Seq, e.Action)
		}
		fmt.Fprintf(&b, " [score=%d lines=%d t=%dms]\n", e.Score, e.Lines, e.GameTimeMs)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore entries on page %d\n", history.Page+1)
	}
	return b.String()
}
