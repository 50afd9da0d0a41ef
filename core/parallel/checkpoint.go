package parallel

import "runtime"

// Checkpoint is a cooperative suspension point inside a long training loop.
//
// Every Every-th call to Tick yields the processor with runtime.Gosched so
// that other goroutines (progress readers, HTTP handlers) get scheduled, and
// calls Hook with the number of completed and total steps. A zero Checkpoint
// never yields and never reports.
type Checkpoint struct {
	// Every is the yield interval in steps. Values <= 0 disable yielding.
	Every int

	// Hook receives progress at each yield. May be nil.
	Hook func(done, total int)
}

// Tick records that step done of total has finished.
func (c Checkpoint) Tick(done, total int) {
	if c.Every <= 0 || done%c.Every != 0 {
		return
	}
	if c.Hook != nil {
		c.Hook(done, total)
	}
	runtime.Gosched()
}

// Yield unconditionally reports and yields, independent of Every.
// Used before each unit of coarse work (a fold, a feature).
func (c Checkpoint) Yield(done, total int) {
	if c.Hook != nil {
		c.Hook(done, total)
	}
	runtime.Gosched()
}
