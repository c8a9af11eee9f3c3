package controller

import "time"

// Record is one message's outcome: the rule ids it violated, possibly none,
// in check-completion order.
type Record struct {
	Violated []string  `json:"violated,omitempty"`
	At       time.Time `json:"at"`
}

// Clean reports whether the record carries no violation.
func (r Record) Clean() bool { return len(r.Violated) == 0 }

// window accumulates Records since the last ruleset change. It is owned
// exclusively by the controller and accessed only under its mutex, so it
// carries no lock of its own. Append-only between changes; cleared exactly
// when the ruleset changes.
type window struct {
	records []Record
}

func (w *window) append(rec Record) {
	w.records = append(w.records, rec)
}

func (w *window) len() int { return len(w.records) }

// failRatio is the fraction of records with at least one violation.
// Zero for an empty window.
func (w *window) failRatio() float64 {
	if len(w.records) == 0 {
		return 0
	}
	failed := 0
	for _, rec := range w.records {
		if !rec.Clean() {
			failed++
		}
	}
	return float64(failed) / float64(len(w.records))
}

// snapshot returns a copy of the accumulated records.
func (w *window) snapshot() []Record {
	if len(w.records) == 0 {
		return nil
	}
	out := make([]Record, len(w.records))
	copy(out, w.records)
	return out
}

func (w *window) clear() {
	w.records = w.records[:0]
}
