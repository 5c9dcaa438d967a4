package pipeline

// State names a stage of the notification lifecycle. Every invocation moves
// forward through the states in order and ends in exactly one of the three
// terminal states.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateNormalized State = "NORMALIZED"
	StateFetched    State = "FETCHED"
	StateAnalyzed   State = "ANALYZED"
	StateExtracted  State = "EXTRACTED"

	// StatePublished is terminal: the frame exists in the output store.
	StatePublished State = "PUBLISHED"

	// StateSkipped is terminal: the judgment found no matching moment, so
	// there is nothing to extract or publish.
	StateSkipped State = "SKIPPED"

	// StateFailed is terminal: some stage returned a fault.
	StateFailed State = "FAILED"
)
