package orchestrator_test

import (
	"testing"
	"time"

	"github.com/temirov/fileprompt/internal/orchestrator"
	"github.com/temirov/fileprompt/internal/types"
)

func TestHistoryEvictsOldestFirst(testingHandle *testing.T) {
	history := orchestrator.NewHistory(3)
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for index, name := range []string{"a", "b", "c", "d", "e"} {
		history.Append(types.HistoryEntry{Timestamp: baseTime.Add(time.Duration(index) * time.Minute), Paths: []string{name}})
	}
	entries := history.Entries()
	if len(entries) != 3 || history.Len() != 3 {
		testingHandle.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for index, expected := range []string{"c", "d", "e"} {
		if entries[index].Paths[0] != expected {
			testingHandle.Fatalf("entry %d: expected %s, got %s", index, expected, entries[index].Paths[0])
		}
	}
}

func TestHistoryPartiallyFilled(testingHandle *testing.T) {
	history := orchestrator.NewHistory(4)
	paths := []string{"x"}
	history.Append(types.HistoryEntry{Paths: paths})
	paths[0] = "mutated"
	entries := history.Entries()
	if len(entries) != 1 || entries[0].Paths[0] != "x" {
		testingHandle.Fatalf("expected history to copy paths, got %+v", entries)
	}
}
