package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Logger writes leveled console output to stderr and, optionally, structured
// JSON lines to a log file. Stdout is reserved for the MCP transport.
type Logger struct {
	infoLogger  *log.Logger
	debugLogger *log.Logger
	fileLogger  *log.Logger
	debugMode   bool
	logFile     *os.File
}

// LogEntry is one line of the JSON log file.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Tool      string                 `json:"tool,omitempty"`
	Duration  string                 `json:"duration,omitempty"`
	Error     string                 `json:"error,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// New creates a logger configured from the environment.
func New() *Logger {
	l := NewWithWriter(os.Stderr, isDebugEnabled())

	if logPath := getLogFilePath(); logPath != "" {
		if err := l.setupFileLogging(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
		}
	}

	return l
}

// NewWithWriter creates a console-only logger writing to w.
func NewWithWriter(w io.Writer, debug bool) *Logger {
	return &Logger{
		infoLogger:  log.New(w, "[INFO] ", log.LstdFlags),
		debugLogger: log.New(w, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
		debugMode:   debug,
	}
}

func (l *Logger) setupFileLogging(logPath string) error {
	// Owner-only permissions: tool arguments can carry inventory names.
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.logFile = file
	l.fileLogger = log.New(file, "", 0)

	l.write(LogEntry{Level: "info", Message: "Logger initialized with file output"})
	return nil
}

func getLogFilePath() string {
	if path := os.Getenv("NETBOX_MCP_LOG_FILE"); path != "" {
		return path
	}
	return os.Getenv("MCP_LOG_FILE")
}

func isDebugEnabled() bool {
	debug := os.Getenv("DEBUG")
	if debug == "" {
		debug = os.Getenv("NETBOX_MCP_DEBUG")
	}

	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// write appends entry to the JSON log file, if one is configured.
func (l *Logger) write(entry LogEntry) {
	if l.fileLogger == nil {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().Format(time.RFC3339)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.fileLogger.Printf(`{"timestamp":%q,"level":"error","message":"JSON marshal error: %v"}`,
			time.Now().Format(time.RFC3339), err)
		return
	}
	l.fileLogger.Println(string(data))
}

// Info logs informational messages (always shown)
func (l *Logger) Info(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.infoLogger.Printf("%s", message)
	l.write(LogEntry{Level: "info", Message: message})
}

// Debug logs only when debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debugMode {
		return
	}
	message := fmt.Sprintf(format, args...)
	l.debugLogger.Output(2, message)
	l.write(LogEntry{Level: "debug", Message: message})
}

// Warn logs warning messages (always shown)
func (l *Logger) Warn(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.infoLogger.Printf("[WARN] %s", message)
	l.write(LogEntry{Level: "warn", Message: message})
}

// Error logs error messages (always shown)
func (l *Logger) Error(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.infoLogger.Printf("[ERROR] %s", message)
	l.write(LogEntry{Level: "error", Message: message})
}

// Fatalf logs the message, closes the log file and exits with status 1.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.infoLogger.Printf("[FATAL] %s", message)
	l.write(LogEntry{Level: "fatal", Message: message})
	l.Close()
	os.Exit(1)
}

// IsDebugEnabled returns whether debug mode is active
func (l *Logger) IsDebugEnabled() bool {
	return l.debugMode
}

// SetDebugMode allows runtime control of debug mode
func (l *Logger) SetDebugMode(enabled bool) {
	l.debugMode = enabled
}

// LogToolCall records one tool invocation. Arguments are only written in
// debug mode.
func (l *Logger) LogToolCall(requestID, toolName string, args interface{}, duration time.Duration, err error) {
	context := map[string]interface{}{
		"tool_name": toolName,
	}
	if l.debugMode && args != nil {
		if argsJSON, jsonErr := json.Marshal(args); jsonErr == nil {
			context["args"] = string(argsJSON)
		}
	}

	entry := LogEntry{
		Tool:      toolName,
		Duration:  duration.String(),
		RequestID: requestID,
		Context:   context,
	}

	if err != nil {
		entry.Level = "error"
		entry.Error = err.Error()
		entry.Message = fmt.Sprintf("Tool %s failed (duration: %v): %v", toolName, duration, err)
		l.infoLogger.Printf("[ERROR] %s", entry.Message)
		l.write(entry)
		return
	}

	if !l.debugMode {
		return
	}
	entry.Level = "debug"
	entry.Message = fmt.Sprintf("Tool %s completed (duration: %v)", toolName, duration)
	l.debugLogger.Printf("%s [%s]", entry.Message, requestID)
	l.write(entry)
}

// LogResourceAccess logs an MCP resource read.
func (l *Logger) LogResourceAccess(resourceURI string, success bool, details interface{}) {
	context := map[string]interface{}{
		"resource_uri": resourceURI,
		"success":      success,
	}
	if details != nil {
		context["details"] = details
	}

	message := fmt.Sprintf("Resource access: %s - success: %t", resourceURI, success)
	if success {
		l.Debug("%s", message)
		return
	}
	l.infoLogger.Printf("[WARN] %s", message)
	l.write(LogEntry{Level: "warn", Message: message, Context: context})
}

// LogInitialization logs server initialization events
func (l *Logger) LogInitialization(component string, status string, details interface{}) {
	context := map[string]interface{}{
		"component": component,
		"status":    status,
	}
	if details != nil {
		context["details"] = details
	}

	message := fmt.Sprintf("Initialization: %s - %s", component, status)
	l.infoLogger.Printf("%s", message)
	l.write(LogEntry{Level: "info", Message: message, Context: context})
}

// LogPerformanceMetric logs a timed operation. Console output only for slow
// operations or in debug mode; the file always gets the entry.
func (l *Logger) LogPerformanceMetric(operation string, duration time.Duration, metadata interface{}) {
	context := map[string]interface{}{
		"operation": operation,
	}
	if metadata != nil {
		context["metadata"] = metadata
	}

	message := fmt.Sprintf("Performance: %s took %v", operation, duration)
	if duration > time.Second || l.debugMode {
		l.debugLogger.Printf("%s", message)
	}
	l.write(LogEntry{Level: "performance", Message: message, Duration: duration.String(), Context: context})
}

// Close properly closes the log file
func (l *Logger) Close() error {
	if l.logFile == nil {
		return nil
	}
	l.write(LogEntry{Level: "info", Message: "Logger shutting down"})
	err := l.logFile.Close()
	l.logFile = nil
	l.fileLogger = nil
	return err
}
