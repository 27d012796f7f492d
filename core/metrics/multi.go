package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolveResult forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordSolveResult(res SolveResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolveResult(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordModelSize forwards to the sinks that record model sizes.
func (m *MultiSink) RecordModelSize(ev ModelSizeEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ModelSizeRecorder); ok {
			if err := rec.RecordModelSize(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFault forwards to the sinks that record faults.
func (m *MultiSink) RecordFault(ev FaultEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FaultRecorder); ok {
			if err := rec.RecordFault(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
