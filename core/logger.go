package core

// Logger logs messages and reports errors.
// expected args fmt: error | map[string]interface{} | the acting profile (set as the reported person).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person is implemented by values identifying who triggered a log entry.
type Person interface {
	PersonID() string
	PersonName() string
	PersonEmail() string
}
