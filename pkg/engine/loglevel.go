package engine

// LogLevel is an engine log severity. The integer values are the wire
// codes exchanged with the host: ERROR=1, WARNING=2, INFO=3, DEBUG=4.
type LogLevel int

const (
	LogError   LogLevel = 1
	LogWarning LogLevel = 2
	LogInfo    LogLevel = 3
	LogDebug   LogLevel = 4
)

// String returns the level name.
func (l LogLevel) String() string {
	switch l {
	case LogError:
		return "error"
	case LogWarning:
		return "warning"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// LevelFromCode maps a host wire code to a LogLevel. Unknown codes fall
// back to LogInfo.
func LevelFromCode(code int) LogLevel {
	if code >= int(LogError) && code <= int(LogDebug) {
		return LogLevel(code)
	}
	return LogInfo
}

// LogSink receives engine log records.
type LogSink interface {
	Log(level LogLevel, message string)
}
