package airdrop

import "time"

// Event is emitted when a workflow step completes or the workflow fails.
type Event struct {
	Step     Step
	RecordID string
	ChainID  int64
	Token    string
	Hash     string
	Elapsed  time.Duration // time spent in this step
	Err      error         // set on StepFailed; a *StepError for remote failures
}

// Observer receives workflow events. Implementations must not block.
type Observer interface {
	OnStep(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnStep(e Event) { f(e) }

// Observers fans an event out to several observers in order.
type Observers []Observer

func (os Observers) OnStep(e Event) {
	for _, o := range os {
		if o != nil {
			o.OnStep(e)
		}
	}
}
