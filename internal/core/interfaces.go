package core

// ILogger is the leveled logging interface every component receives.
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
