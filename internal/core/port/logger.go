package port

// Fields - structured data attached to a log record.
type Fields map[string]interface{}

// LoggerPort is the logging contract of the core.
// It keeps the core independent from a concrete logger implementation.
type LoggerPort interface {
	Info(msg string, fields Fields)

	Warn(msg string, fields Fields)

	// Error records an error, usually together with the error value.
	Error(msg string, err error, fields Fields)

	Debug(msg string, fields Fields)

	// WithFields returns a logger that adds the fields to every record.
	WithFields(fields Fields) LoggerPort
}
