package metrics

// Sink receives computed metrics. Implementations decide how results are
// persisted or rendered.
type Sink interface {
	Add(name, unit string, value float64)
}

// Fanout writes every metric to each of its sinks.
type Fanout []Sink

func (f Fanout) Add(name, unit string, value float64) {
	for _, s := range f {
		s.Add(name, unit, value)
	}
}
