// Package kvstore provides a BadgerDB-backed tree.Backend.
//
// Rows are JSON values under four key families:
//
//	n/id/<id>                     node record
//	n/path/<path>                 node id
//	n/child/<parentID>\x00<name>  child node id
//	p/<nodeID>\x00<key>           property record
//
// Badger iterates keys in byte order, so a prefix scan over n/child/ yields
// children by name and a scan over p/<nodeID>\x00 yields properties by key.
package kvstore

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds configuration for a Badger-backed store.
type Config struct {
	// Path is the directory for Badger files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Data is lost on Close.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal log lines. Nil disables them.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a value log rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults for a store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
	}
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
