package quoting

import (
	"math"
	"testing"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

func TestEntryExitMAAveragesWithinRecencyWindow(t *testing.T) {
	snaps := []domain.SpreadSnapshot{
		{TimestampMs: 100, EntrySpread: 1, ExitSpread: 2},   // outside window relative to now=2000
		{TimestampMs: 1200, EntrySpread: 2, ExitSpread: 4},  // in window [1000,2000]
		{TimestampMs: 1900, EntrySpread: 4, ExitSpread: 8},  // in window
	}
	entryMA, exitMA := EntryExitMA(snaps, 2000)
	if math.Abs(entryMA-3) > 1e-9 {
		t.Fatalf("expected entryMA averaged over the two in-window snapshots (3), got %v", entryMA)
	}
	if math.Abs(exitMA-6) > 1e-9 {
		t.Fatalf("expected exitMA 6, got %v", exitMA)
	}
}

func TestEntryExitMAFallsBackToSentinelWhenEmpty(t *testing.T) {
	entryMA, exitMA := EntryExitMA(nil, 2000)
	if entryMA != entrySentinel || exitMA != exitSentinel {
		t.Fatalf("expected sentinels (-10, +10), got (%v, %v)", entryMA, exitMA)
	}
}

func TestEntryExitMAFallsBackToLastValueWhenNoneInWindow(t *testing.T) {
	snaps := []domain.SpreadSnapshot{
		{TimestampMs: 100, EntrySpread: 5, ExitSpread: 6},
	}
	entryMA, exitMA := EntryExitMA(snaps, 5000)
	if entryMA != 5 || exitMA != 6 {
		t.Fatalf("expected fallback to last value (5,6), got (%v,%v)", entryMA, exitMA)
	}
}
