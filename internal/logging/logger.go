// Package logging provides config-driven categorized file-based logging for
// dublette. Logs are written to the configured log dir with separate files per
// category. When debug mode is off the whole package is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config, shutdown
	CategoryIngest   Category = "ingest"   // File ingestion, validation
	CategoryBlocking Category = "blocking" // Candidate generation
	CategoryScore    Category = "score"    // Signal scoring, combining
	CategoryResolver Category = "resolver" // LLM resolution, cache
	CategoryAPI      Category = "api"      // Raw LLM API calls
	CategoryCluster  Category = "cluster"  // Components, coherence
	CategorySynth    Category = "synth"    // Canonical synthesis, enrichment
	CategoryStore    Category = "store"    // sqlite operations
	CategoryReview   Category = "review"   // Split/merge/dismiss
	CategoryPipeline Category = "pipeline" // Orchestrator runs
	CategoryEval     Category = "eval"     // Evaluator
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options mirrors config.LoggingConfig; a struct copy is accepted here to
// avoid a circular import with the config package.
type Options struct {
	DebugMode  bool
	Level      string
	Dir        string
	Categories map[string]bool
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	opts     Options
	logLevel int
)

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

// Initialize sets up the logging directory. Should be called once at startup.
func Initialize(o Options) error {
	mu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	mu.Unlock()

	if !o.DebugMode {
		return nil // Silent no-op in production mode
	}
	if o.Dir == "" {
		return fmt.Errorf("logging dir required in debug mode")
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== dublette logging initialized ===")
	boot.Info("Logs directory: %s", o.Dir)
	boot.Info("Log level: %s", o.Level)
	return nil
}

func categoryEnabled(c Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(c)]
	if !ok {
		return true // Enable by default if not listed
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a no-op
// logger when the category or debug mode is disabled.
func Get(category Category) *Logger {
	if !categoryEnabled(category) {
		return &Logger{category: category}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	dir := opts.Dir
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a plain file move.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message (only if level <= debug).
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always logged if the logger exists).
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first
// =============================================================================

func Boot(format string, args ...interface{})     { Get(CategoryBoot).Info(format, args...) }
func Ingest(format string, args ...interface{})   { Get(CategoryIngest).Info(format, args...) }
func Blocking(format string, args ...interface{}) { Get(CategoryBlocking).Info(format, args...) }
func Score(format string, args ...interface{})    { Get(CategoryScore).Info(format, args...) }
func Resolver(format string, args ...interface{}) { Get(CategoryResolver).Info(format, args...) }
func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func Cluster(format string, args ...interface{})  { Get(CategoryCluster).Info(format, args...) }
func Synth(format string, args ...interface{})    { Get(CategorySynth).Info(format, args...) }
func Store(format string, args ...interface{})    { Get(CategoryStore).Info(format, args...) }
func Review(format string, args ...interface{})   { Get(CategoryReview).Info(format, args...) }
func Pipeline(format string, args ...interface{}) { Get(CategoryPipeline).Info(format, args...) }
func Eval(format string, args ...interface{})     { Get(CategoryEval).Info(format, args...) }

func IngestDebug(format string, args ...interface{})   { Get(CategoryIngest).Debug(format, args...) }
func BlockingDebug(format string, args ...interface{}) { Get(CategoryBlocking).Debug(format, args...) }
func ScoreDebug(format string, args ...interface{})    { Get(CategoryScore).Debug(format, args...) }
func ResolverDebug(format string, args ...interface{}) { Get(CategoryResolver).Debug(format, args...) }
func APIDebug(format string, args ...interface{})      { Get(CategoryAPI).Debug(format, args...) }
func StoreDebug(format string, args ...interface{})    { Get(CategoryStore).Debug(format, args...) }
func PipelineDebug(format string, args ...interface{}) { Get(CategoryPipeline).Debug(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level.
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}
