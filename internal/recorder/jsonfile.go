package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"SignalSentinel/internal/model"
)

// JSONFileRecorder keeps the signal log as a JSON array on disk. Every
// append rewrites the file through a temp file and rename.
type JSONFileRecorder struct {
	path    string
	mu      sync.Mutex
	signals []model.Signal
	ids     map[string]struct{}
}

// NewJSONFileRecorder reads the existing log at path. A missing file is an
// empty log.
func NewJSONFileRecorder(path string) (*JSONFileRecorder, error) {
	r := &JSONFileRecorder{path: path, ids: make(map[string]struct{})}
	signals, err := readSignals(path)
	if err != nil {
		return nil, err
	}
	for _, s := range signals {
		r.ids[s.ID] = struct{}{}
	}
	r.signals = signals
	return r, nil
}

func readSignals(path string) ([]model.Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read signal log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var signals []model.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("decode signal log %s: %w", path, err)
	}
	return signals, nil
}

func (r *JSONFileRecorder) Append(sig *model.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[sig.ID]; ok {
		return nil
	}
	next := append(r.signals[:len(r.signals):len(r.signals)], *sig)
	if err := r.save(next); err != nil {
		return err
	}
	r.signals = next
	r.ids[sig.ID] = struct{}{}
	return nil
}

func (r *JSONFileRecorder) save(signals []model.Signal) error {
	data, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return fmt.Errorf("encode signal log: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".signals-*.json")
	if err != nil {
		return fmt.Errorf("write signal log: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write signal log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write signal log: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace signal log: %w", err)
	}
	return nil
}

func (r *JSONFileRecorder) Load() ([]model.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Signal, len(r.signals))
	copy(out, r.signals)
	return out, nil
}

func (r *JSONFileRecorder) Close() error { return nil }
