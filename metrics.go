package cloudqueue

import "time"

// Metrics captures provider-level telemetry. Counters are only incremented
// on the success path of an operation; an aborted call (context canceled,
// a non-tolerated error) does not increment its operation's own counter,
// though poison moves already completed inside an aborted Get stay counted
// by AddPoisoned. This mirrors the
// original implementation's accounting and is a deliberate choice, not an
// oversight — see DESIGN.md, Open Question 2.
type Metrics interface {
	AddPut(count int)
	AddGet(count int)
	AddDelete(count int)
	AddAbandon(count int)
	AddPersist(count int)
	AddPoisoned(count int)
	AddOverflow(count int)
	ObserveGetLatency(d time.Duration)
}

// NopMetrics discards everything. It is the default when no Metrics is
// configured.
type NopMetrics struct{}

func (NopMetrics) AddPut(int)                      {}
func (NopMetrics) AddGet(int)                      {}
func (NopMetrics) AddDelete(int)                   {}
func (NopMetrics) AddAbandon(int)                  {}
func (NopMetrics) AddPersist(int)                  {}
func (NopMetrics) AddPoisoned(int)                 {}
func (NopMetrics) AddOverflow(int)                 {}
func (NopMetrics) ObserveGetLatency(time.Duration) {}
