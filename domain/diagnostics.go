package domain

import "fmt"

type Severity int

const (
	SeverityTrace Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "trace"
	case SeverityWarning:
		return "warning"
	}
	return "error"
}

// Diagnostic is a non-fatal event reported to the host. The stream
// connection itself is never terminated through this channel.
type Diagnostic struct {
	Severity Severity
	Code     string
	Message  string
}

type DiagnosticSink func(Diagnostic)

func (s DiagnosticSink) Tracef(code, format string, args ...interface{}) {
	s.emit(SeverityTrace, code, format, args...)
}

func (s DiagnosticSink) Warnf(code, format string, args ...interface{}) {
	s.emit(SeverityWarning, code, format, args...)
}

func (s DiagnosticSink) Errorf(code, format string, args ...interface{}) {
	s.emit(SeverityError, code, format, args...)
}

func (s DiagnosticSink) emit(sev Severity, code, format string, args ...interface{}) {
	if s == nil {
		return
	}
	s(Diagnostic{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...)})
}
