package types

type RunMode string

const (
	// ModeLocal runs the trigger API, the scheduler and the temporal worker in one process
	ModeLocal RunMode = "local"
	// ModeAPI runs only the trigger API
	ModeAPI RunMode = "api"
	// ModeWorker runs only the scheduler and the temporal worker
	ModeWorker RunMode = "worker"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
