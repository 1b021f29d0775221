package logger

// NullLogger discards everything. Tests use it to keep output quiet.
type NullLogger struct{}

// NewNullLogger creates a new null logger
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Info(msg string, args ...any)  {}
func (l *NullLogger) Warn(msg string, args ...any)  {}
func (l *NullLogger) Error(msg string, args ...any) {}
func (l *NullLogger) Debug(msg string, args ...any) {}

func (l *NullLogger) WithField(key string, value interface{}) Logger {
	return l
}

func (l *NullLogger) WithFields(fields map[string]interface{}) Logger {
	return l
}

func (l *NullLogger) StartOperation(name string) OperationLogger {
	return nullOperation{}
}

type nullOperation struct{}

func (nullOperation) Update(msg string, args ...any)   {}
func (nullOperation) Complete(msg string, args ...any) {}
func (nullOperation) Fail(msg string, args ...any)     {}
