package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mcdev12/planpoker/go/internal/feed"
	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/room"
)

const degradedBanner = "!! connection degraded: live updates paused, rejoin to refresh"

func renderRoom(w io.Writer, snap room.Snapshot, status feed.Status) {
	if !snap.HasSession() {
		fmt.Fprintln(w, "No session. Use create or join.")
		return
	}
	if snap.Closed {
		fmt.Fprintln(w, "This session has been closed.")
		return
	}
	if status == feed.StatusError {
		fmt.Fprintln(w, degradedBanner)
	}

	state := "voting"
	if snap.Revealed {
		state = "revealed"
	}
	fmt.Fprintf(w, "Session %s [%s, %s]\n", snap.SessionID, state, status)
	fmt.Fprintf(w, "Task: %s\n", snap.TaskName)

	moderator, _ := snap.Moderator()
	voted := 0
	for _, v := range snap.Roster {
		mark := "  "
		if v.UserName == moderator {
			mark = "* "
		}
		you := ""
		if snap.UserName != "" && models.SameName(v.UserName, snap.UserName) {
			you = " (you)"
		}
		fmt.Fprintf(w, "%s%-20s %s\n", mark, v.UserName+you, cardCell(v, snap.Revealed))
		if v.HasVoted() {
			voted++
		}
	}
	fmt.Fprintf(w, "%d of %d voted", voted, len(snap.Roster))
	if snap.LocalVote != nil {
		fmt.Fprintf(w, ", your card: %s", *snap.LocalVote)
	}
	fmt.Fprintln(w)

	if snap.Revealed {
		renderResults(w, snap)
	}
}

func cardCell(v models.Vote, revealed bool) string {
	switch {
	case !v.HasVoted():
		return "..."
	case revealed:
		return v.Value.String()
	default:
		return "voted"
	}
}

func renderResults(w io.Writer, snap room.Snapshot) {
	summary := snap.Results()
	fmt.Fprintf(w, "Average: %s  Median: %s  %s", summary.AverageText(), summary.MedianText(), summary.Consensus)
	if r := summary.Range(); r != "" {
		fmt.Fprintf(w, " (%s)", r)
	}
	fmt.Fprintln(w)

	var tally []string
	for _, c := range models.CardValues {
		if n := summary.Tally[c]; n > 0 {
			tally = append(tally, fmt.Sprintf("%s×%d", c, n))
		}
	}
	if len(tally) > 0 {
		fmt.Fprintf(w, "Cards: %s\n", strings.Join(tally, " "))
	}
}

func renderGuide(w io.Writer) {
	for _, c := range models.CardValues {
		info := models.CardGuide[c]
		fmt.Fprintf(w, "%3s  %-10s %s (e.g. %s)\n", c, info.Title, info.Description, info.Examples)
	}
}
