package events

// =============================================================================
// MESSAGE CATEGORIES
// =============================================================================

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent represents fire-and-forget, fan-out to all subscribers.
	MessageCategoryEvent MessageCategory = "event"
)

// =============================================================================
// RUN LIFECYCLE EVENTS
// =============================================================================

// RunStarted is emitted when a generation run begins.
// Subscribers: session tracking, CLI progress output.
type RunStarted struct {
	RunID            string  `json:"run_id"`
	BusinessInput    string  `json:"business_input"`
	QualityThreshold float64 `json:"quality_threshold"`
	MaxCycles        int     `json:"max_reflection_cycles"`
}

// Category implements the Message interface.
func (m *RunStarted) Category() string { return string(MessageCategoryEvent) }

// RunCompleted is emitted when a run reaches a terminal state, successful
// or not.
type RunCompleted struct {
	RunID            string  `json:"run_id"`
	Status           string  `json:"status"`
	DurationMS       int     `json:"duration_ms"`
	ReflectionCycles int     `json:"reflection_cycles"`
	FinalScore       float64 `json:"final_score"`
	Error            *string `json:"error,omitempty"`
}

// Category implements the Message interface.
func (m *RunCompleted) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// STAGE PROGRESS EVENTS
// =============================================================================

// StageStarted is emitted when a pipeline stage begins executing.
type StageStarted struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`
	Cycle int    `json:"reflection_cycle"`
}

// Category implements the Message interface.
func (m *StageStarted) Category() string { return string(MessageCategoryEvent) }

// StageCompleted is emitted when a stage pass finishes.
type StageCompleted struct {
	RunID      string  `json:"run_id"`
	Stage      string  `json:"stage"`
	Cycle      int     `json:"reflection_cycle"`
	Status     string  `json:"status"` // "completed", "failed"
	DurationMS int     `json:"duration_ms"`
	Error      *string `json:"error,omitempty"`
}

// Category implements the Message interface.
func (m *StageCompleted) Category() string { return string(MessageCategoryEvent) }

// ReflectionCycleStarted is emitted when the quality reviewer routes the run
// into another critique pass.
type ReflectionCycleStarted struct {
	RunID        string  `json:"run_id"`
	Cycle        int     `json:"cycle"`
	CurrentScore float64 `json:"current_score"`
	Threshold    float64 `json:"threshold"`
}

// Category implements the Message interface.
func (m *ReflectionCycleStarted) Category() string { return string(MessageCategoryEvent) }

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// TypedMessage is an optional interface for messages that provide their own
// type name.
type TypedMessage interface {
	Message
	MessageType() string
}

// GetMessageType returns the type name of a message for routing.
func GetMessageType(msg Message) string {
	if typed, ok := msg.(TypedMessage); ok {
		return typed.MessageType()
	}

	switch msg.(type) {
	case *RunStarted:
		return "RunStarted"
	case *RunCompleted:
		return "RunCompleted"
	case *StageStarted:
		return "StageStarted"
	case *StageCompleted:
		return "StageCompleted"
	case *ReflectionCycleStarted:
		return "ReflectionCycleStarted"
	default:
		return "Unknown"
	}
}
