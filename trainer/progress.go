package trainer

import "math"

// DoneLabel is the label of the terminal progress event.
const DoneLabel = "done"

// Progress is one progress report. Percent never decreases within a run and
// the last event of a successful run is {DoneLabel, 100}.
type Progress struct {
	Label   string `json:"label"`
	Percent int    `json:"pct"`
}

// ProgressFunc receives progress events on the training goroutine.
type ProgressFunc func(Progress)

// tracker forwards events with percentages clamped to [0, 100] and never
// below the last reported value.
type tracker struct {
	fn   ProgressFunc
	last int
}

func newTracker(fn ProgressFunc) *tracker {
	return &tracker{fn: fn}
}

func (t *tracker) report(label string, pct float64) {
	p := int(math.Floor(pct))
	if p < t.last {
		p = t.last
	}
	if p > 100 {
		p = 100
	}
	t.last = p
	if t.fn != nil {
		t.fn(Progress{Label: label, Percent: p})
	}
}

// span is the slice [start, start+width) of the overall bar owned by one
// model kind.
type span struct {
	start, width float64
}

// at maps a fraction of the model's work onto the overall bar.
func (s span) at(frac float64) float64 {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return s.start + s.width*frac
}

// Phase boundaries inside one model's span.
const (
	prepareEnd   = 5.0
	modelsEnd    = 95.0
	fitEnd       = 0.50
	evaluateEnd  = 0.55
	importanceTo = 0.70
)

func modelSpan(i, n int) span {
	w := (modelsEnd - prepareEnd) / float64(n)
	return span{start: prepareEnd + w*float64(i), width: w}
}
