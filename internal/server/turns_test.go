package server

import (
	"testing"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

func TestNextTurnIndex(t *testing.T) {
	cases := []struct {
		current, count, want int
	}{
		{0, 1, 0},
		{0, 2, 1},
		{1, 2, 0},
		{2, 3, 0},
		{0, 0, 0}, // degenerate roster never divides by zero
	}
	for _, tc := range cases {
		if got := nextTurnIndex(tc.current, tc.count); got != tc.want {
			t.Fatalf("nextTurnIndex(%d, %d) = %d, want %d", tc.current, tc.count, got, tc.want)
		}
	}
}

func TestIsMyTurn(t *testing.T) {
	episode := &db.Episode{Status: db.StatusInProgress, CurrentTurnIndex: 1}
	first := &db.Participant{TurnOrder: 0}
	second := &db.Participant{TurnOrder: 1}

	if isMyTurn(episode, first) {
		t.Fatal("expected first participant to be off turn")
	}
	if !isMyTurn(episode, second) {
		t.Fatal("expected second participant to hold the turn")
	}

	episode.Status = db.StatusCompleted
	if isMyTurn(episode, second) {
		t.Fatal("a completed episode has no active turn")
	}
}

func TestTrailingRun(t *testing.T) {
	alice := "alice"
	bob := "bob"
	panels := []db.Panel{
		{CreatedBy: &alice},
		{CreatedBy: &bob},
		{CreatedBy: &alice},
		{CreatedBy: &alice},
	}
	if got := trailingRun(panels, alice); got != 2 {
		t.Fatalf("expected trailing run 2, got %d", got)
	}
	if got := trailingRun(panels, bob); got != 0 {
		t.Fatalf("expected trailing run 0, got %d", got)
	}
	if got := trailingRun(nil, alice); got != 0 {
		t.Fatalf("expected trailing run 0 for no panels, got %d", got)
	}

	// Panels without an author (legacy rows) break the run.
	panels = append(panels, db.Panel{CreatedBy: nil})
	if got := trailingRun(panels, alice); got != 0 {
		t.Fatalf("expected authorless panel to break the run, got %d", got)
	}
}
