package trace

import (
	"inkboard/internal/palm"
	"inkboard/internal/stage"
)

// Change is a sample whose palm verdict differs under the replayed
// configuration.
type Change struct {
	Sample   Sample
	Replayed palm.Reason
}

// NowRejected reports whether the replayed configuration rejects a sample
// that was originally accepted.
func (c Change) NowRejected() bool { return c.Replayed.Rejected() }

// ReplayResult compares recorded palm verdicts with a replay.
type ReplayResult struct {
	// Classified counts samples that reached palm rejection.
	Classified int

	RecordedRejected int
	ReplayedRejected int

	Changes []Change
	Stats   palm.Stats
}

// Replay feeds recorded samples through a fresh analyzer built from cfg.
// Duplicates and secondary-button presses never reached the analyzer and
// are skipped; recorded up events end their contact.
func Replay(samples []Sample, cfg palm.Config) ReplayResult {
	cfg.Enabled = true
	a := palm.New(cfg)

	var res ReplayResult
	for _, sm := range samples {
		if sm.Event == "up" {
			a.OnContactEnd(sm.ContactID)
			continue
		}
		if !reachedPalm(sm) {
			continue
		}

		reason := a.Classify(sm.Pointer())
		res.Classified++
		recorded := sm.Verdict == stage.VerdictPalm
		if recorded {
			res.RecordedRejected++
		}
		if reason.Rejected() {
			res.ReplayedRejected++
		}
		if recorded != reason.Rejected() {
			res.Changes = append(res.Changes, Change{Sample: sm, Replayed: reason})
		}
	}
	res.Stats = a.Stats()
	return res
}

func reachedPalm(sm Sample) bool {
	switch sm.Verdict {
	case stage.VerdictDuplicate:
		return false
	case stage.VerdictProcessed:
		return sm.Reason != "secondary_button"
	default:
		return true
	}
}
