package sink

// Metric is one named measurement produced by a run.
type Metric struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

// Memory collects metrics in emission order. It backs the console report
// and the JSON report file.
type Memory struct {
	metrics []Metric
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(name, unit string, value float64) {
	m.metrics = append(m.metrics, Metric{
		Name:  name,
		Unit:  unit,
		Value: value,
	})
}

// Metrics returns the collected metrics in the order they were added.
func (m *Memory) Metrics() []Metric {
	return m.metrics
}
