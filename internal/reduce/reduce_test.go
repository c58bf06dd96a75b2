package reduce

import (
	"math/rand"
	"testing"
	"time"

	"github.com/steveyegge/issueboard/internal/types"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) types.Timestamp {
	return types.NewTimestamp(base.Add(time.Duration(minutes) * time.Minute))
}

func TestDeriveDefaults(t *testing.T) {
	got := Derive(&types.Record{Title: "empty"})
	want := types.DefaultView()
	if got != want {
		t.Errorf("Derive(empty) = %+v, want %+v", got, want)
	}
	if got := Derive(nil); got != want {
		t.Errorf("Derive(nil) = %+v, want %+v", got, want)
	}
}

func TestDeriveLastWriterPerField(t *testing.T) {
	rec := &types.Record{Updates: []types.Event{
		{Status: "new", Priority: "4 - Low", Assignee: "alice", UpdatedAt: at(0)},
		{Status: "in progress", UpdatedAt: at(10)},
		{Priority: "1 - Critical", UpdatedBy: "bob", UpdatedAt: at(5)},
	}}
	got := Derive(rec)
	want := types.View{Status: "in progress", Priority: "1 - Critical", Assignee: "alice", UpdatedBy: "bob"}
	if got != want {
		t.Errorf("Derive() = %+v, want %+v", got, want)
	}
}

func TestDeriveOutOfOrderTimestamps(t *testing.T) {
	// Appended later but dated earlier: the earlier-appended, later-dated event wins.
	rec := &types.Record{Updates: []types.Event{
		{Status: "completed", UpdatedAt: at(30)},
		{Status: "in progress", UpdatedAt: at(20)},
	}}
	if got := Derive(rec).Status; got != "completed" {
		t.Errorf("Status = %q, want completed", got)
	}
}

func TestDeriveTieBreaksByAppendOrder(t *testing.T) {
	rec := &types.Record{Updates: []types.Event{
		{Assignee: "first", UpdatedAt: at(1)},
		{Assignee: "second", UpdatedAt: at(1)},
	}}
	if got := Derive(rec).Assignee; got != "second" {
		t.Errorf("Assignee = %q, want second", got)
	}
}

func TestDeriveUndatedEventsLoseToDated(t *testing.T) {
	rec := &types.Record{Updates: []types.Event{
		{Status: "in progress", UpdatedAt: at(1)},
		{Status: "blocked"},
	}}
	if got := Derive(rec).Status; got != "in progress" {
		t.Errorf("Status = %q, want in progress", got)
	}
}

func TestDeriveLegacyTopLevelFallback(t *testing.T) {
	rec := &types.Record{
		Status:   "in progress",
		Assignee: "carol",
		Updates:  []types.Event{{Priority: "2 - High", UpdatedAt: at(0)}},
	}
	got := Derive(rec)
	want := types.View{Status: "in progress", Priority: "2 - High", Assignee: "carol", UpdatedBy: types.Unknown}
	if got != want {
		t.Errorf("Derive() = %+v, want %+v", got, want)
	}

	// Events still override the top-level value.
	rec.Updates = append(rec.Updates, types.Event{Status: "closed", UpdatedAt: at(1)})
	if got := Derive(rec).Status; got != "closed" {
		t.Errorf("Status = %q, want closed", got)
	}
}

func TestDerivePermutationInvariant(t *testing.T) {
	events := []types.Event{
		{Status: "new", Priority: "4 - Low", Assignee: "a", UpdatedBy: "a", UpdatedAt: at(0)},
		{Status: "in progress", UpdatedBy: "b", UpdatedAt: at(3)},
		{Assignee: "c", UpdatedAt: at(7)},
		{Priority: "0 - Urgent", UpdatedBy: "d", UpdatedAt: at(2)},
		{Status: "blocked", UpdatedAt: at(9)},
		{Details: "note only", UpdatedAt: at(11)},
	}
	want := DeriveEvents(events, types.DefaultView())

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]types.Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := DeriveEvents(shuffled, types.DefaultView()); got != want {
			t.Fatalf("permutation %d: DeriveEvents = %+v, want %+v", i, got, want)
		}
	}
}
