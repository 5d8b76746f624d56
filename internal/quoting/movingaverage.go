package quoting

import "github.com/sawpanic/xvenue-mm/internal/domain"

// recencyWindowMs is the 1-second recency window of spec §4.4.
const recencyWindowMs = 1000

// entrySentinel/exitSentinel guarantee the limit price is shifted by the
// full adjustment buffer when no snapshot data exists at all, per spec
// §4.4 "Moving averages".
const entrySentinel = -10.0
const exitSentinel = 10.0

// EntryExitMA computes entry_ma/exit_ma: the mean of entry_spread/
// exit_spread over snapshots within the last 1s of nowMs; falling back to
// the most recent non-null value, then to the sentinel, per spec §4.4.
func EntryExitMA(snaps []domain.SpreadSnapshot, nowMs int64) (entryMA, exitMA float64) {
	var entrySum, exitSum float64
	var entryN, exitN int
	var lastEntry, lastExit float64
	haveLastEntry, haveLastExit := false, false

	for _, s := range snaps {
		if s.TimestampMs >= nowMs-recencyWindowMs {
			entrySum += s.EntrySpread
			exitSum += s.ExitSpread
			entryN++
			exitN++
		}
		lastEntry, haveLastEntry = s.EntrySpread, true
		lastExit, haveLastExit = s.ExitSpread, true
	}

	switch {
	case entryN > 0:
		entryMA = entrySum / float64(entryN)
	case haveLastEntry:
		entryMA = lastEntry
	default:
		entryMA = entrySentinel
	}

	switch {
	case exitN > 0:
		exitMA = exitSum / float64(exitN)
	case haveLastExit:
		exitMA = lastExit
	default:
		exitMA = exitSentinel
	}

	return entryMA, exitMA
}
