package core

// Logger is the logging interface used across services.
// args may hold errors, extra data maps and the Identity responsible for the event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
