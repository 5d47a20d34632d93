package recorder

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/model"
)

// Recorder is the persisted signal log. Load returns signals in the order
// they were appended. Appending a signal whose id is already stored is a
// no-op.
type Recorder interface {
	Append(sig *model.Signal) error
	Load() ([]model.Signal, error)
	Close() error
}

// Open returns the recorder for backend: "sqlite", "json" or "none".
func Open(backend, sqlitePath, jsonPath string, l *logrus.Logger) (Recorder, error) {
	switch backend {
	case "sqlite":
		r, err := NewSQLiteRecorder(sqlitePath, l)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "json":
		r, err := NewJSONFileRecorder(jsonPath)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "", "none":
		return NewNoopRecorder(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
