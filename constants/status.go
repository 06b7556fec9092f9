package constants

// Method is the extraction strategy chosen by the router.
type Method string

const (
	MethodText   Method = "text"   // locally extracted text, one combined context
	MethodVision Method = "vision" // raw document payloads
)

// RunStatus is the terminal outcome of one pipeline run.
type RunStatus string

// Stable values (also used as inbox sub-directory names by the daemon).
const (
	RunStatusQueued RunStatus = "queued"
	RunStatusDone   RunStatus = "done"
	RunStatusFailed RunStatus = "failed"
)
