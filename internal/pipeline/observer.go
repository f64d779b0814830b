package pipeline

// Update is published on every stage transition. Steps carries a full
// snapshot of all stages' current state, so an observer can render a
// complete progress view without tracking deltas itself.
type Update struct {
	StageID  StageID `json:"step_id"`
	Status   Status  `json:"status"`
	Progress int     `json:"progress"`
	Message  string  `json:"message"`
	Steps    []Step  `json:"all_steps"`
}

// Observer receives stage transitions. Invocation is synchronous on the
// pipeline's flow but bounded by the processor's callback timeout, so a
// stuck observer cannot hang a run indefinitely.
type Observer interface {
	StageChanged(update Update)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Update)

// StageChanged calls f.
func (f ObserverFunc) StageChanged(update Update) {
	f(update)
}
