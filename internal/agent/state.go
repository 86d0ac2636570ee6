package agent

// State names one point in a turn's lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateComposing       State = "composing"
	StateModelStreaming  State = "model_streaming"
	StateToolDispatching State = "tool_dispatching"
	StateFinalizing      State = "finalizing"
	StateDone            State = "done"
	StateError           State = "error"
	StateCancelled       State = "cancelled"
)
