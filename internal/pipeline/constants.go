package pipeline

const (
	// DefaultMaxConcurrency bounds the per-entry dedup and write sequences
	// running at once within one import.
	DefaultMaxConcurrency = 8

	componentName = "pipeline"
)
