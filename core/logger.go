package core

// Logger reports to the console and, when enabled, to the error tracker.
// args may carry errors, maps of extra data and the student a message is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
