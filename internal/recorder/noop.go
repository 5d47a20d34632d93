package recorder

import "SignalSentinel/internal/model"

// NoopRecorder is a no-op implementation used when no signal log is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Append(_ *model.Signal) error  { return nil }
func (n *NoopRecorder) Load() ([]model.Signal, error) { return nil, nil }
func (n *NoopRecorder) Close() error                  { return nil }
