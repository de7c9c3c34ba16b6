package optimize

// ProgressStatus is the coarse state reported in an Event.
type ProgressStatus string

const (
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Event is one progress notification. Events are purely observational.
type Event struct {
	Status     ProgressStatus
	Percent    int
	Message    string
	Attempt    int
	CharValid  bool
	UnitsValid bool
}

// ProgressFunc receives progress events. It is called synchronously from the
// optimization loop and must not block.
type ProgressFunc func(Event)
