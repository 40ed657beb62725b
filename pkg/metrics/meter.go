package metrics

import (
	"fmt"

	"github.com/mbhatt/pageweight/pkg/size"
	"github.com/mbhatt/pageweight/pkg/trace"
	"go.uber.org/zap"
)

// Config holds the recognized aggregation options.
type Config struct {
	// PerResource emits one metric triple per resource in addition to the
	// page-level totals.
	PerResource bool `json:"per_resource"`
	// DataSaving emits an overall data-saving percentage metric.
	DataSaving bool `json:"data_saving"`
}

type state int

const (
	stateIdle state = iota
	stateRecording
	stateStopped
	stateReported
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRecording:
		return "recording"
	case stateStopped:
		return "stopped"
	case stateReported:
		return "reported"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Meter drives size resolution over every response captured for a page load
// and produces page-level and optional per-resource metrics.
//
// A Meter holds no state across measurement runs other than the per-run
// working set; Start clears it.
type Meter struct {
	source   trace.Source
	resolver *size.Resolver
	config   Config
	logger   *zap.Logger

	state        state
	records      []*trace.Record
	materialized bool
}

type MeterOpts struct {
	Source   trace.Source
	Resolver *size.Resolver
	Config   Config
	Logger   *zap.Logger
}

func NewMeter(opts MeterOpts) (*Meter, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("no source")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("no resolver")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("no logger")
	}
	return &Meter{
		source:   opts.Source,
		resolver: opts.Resolver,
		config:   opts.Config,
		logger:   opts.Logger,
		state:    stateIdle,
	}, nil
}

// Start begins a measurement run. It clears any record set left over from a
// previous run and instructs the event source to begin capturing. Calling
// Start mid-run is a contract violation.
func (m *Meter) Start() error {
	if m.state != stateIdle && m.state != stateReported {
		panic(fmt.Sprintf("metrics: Start called while %v", m.state))
	}
	m.records = nil
	m.materialized = false
	if err := m.source.StartCapture(); err != nil {
		return fmt.Errorf("start capture: %v", err)
	}
	m.state = stateRecording
	return nil
}

// Stop ends the current measurement run. Valid only while recording, and
// only if the record set has not yet been materialized.
func (m *Meter) Stop() error {
	if m.state != stateRecording {
		panic(fmt.Sprintf("metrics: Stop called while %v", m.state))
	}
	if m.materialized {
		panic("metrics: record set materialized before Stop")
	}
	if err := m.source.StopCapture(); err != nil {
		return fmt.Errorf("stop capture: %v", err)
	}
	m.state = stateStopped
	return nil
}

// responses materializes the run's record set exactly once; later calls for
// the same run reuse the materialized set.
func (m *Meter) responses() ([]*trace.Record, error) {
	if m.state != stateStopped && m.state != stateReported {
		panic(fmt.Sprintf("metrics: records requested while %v", m.state))
	}
	if !m.materialized {
		records, err := m.source.Records()
		if err != nil {
			return nil, fmt.Errorf("retrieve records: %v", err)
		}
		m.records = records
		m.materialized = true
	}
	return m.records, nil
}

// AddResults resolves every captured response and writes the computed
// metrics to the sink. Cached responses carry no network transfer cost and
// are skipped entirely.
func (m *Meter) AddResults(sink Sink) error {
	records, err := m.responses()
	if err != nil {
		return err
	}

	var contentLength int64
	var originalContentLength int64

	for _, rec := range records {
		if rec.FromCache {
			continue
		}

		cl := m.resolver.Resolve(rec)
		signature := rec.Signature()

		if ocl, ok := m.declaredOriginalLength(rec); ok {
			if ocl < cl {
				m.logger.Warn("original content length is less than content length",
					zap.Int64("original-content-length", ocl),
					zap.Int64("content-length", cl),
					zap.String("url", rec.URL))
			}
			if m.config.PerResource {
				sink.Add("resource_data_saving_"+signature, "percent",
					dataSavingRate(rec, ocl, cl)*100)
				sink.Add("resource_original_content_length_"+signature,
					"bytes", float64(ocl))
			}
			originalContentLength += ocl
		} else {
			originalContentLength += cl
		}
		if m.config.PerResource {
			sink.Add("resource_content_length_"+signature, "bytes", float64(cl))
		}
		contentLength += cl
	}

	sink.Add("content_length", "bytes", float64(contentLength))
	sink.Add("original_content_length", "bytes", float64(originalContentLength))
	if m.config.DataSaving {
		if originalContentLength > 0 &&
			originalContentLength >= contentLength {
			saving := float64(originalContentLength-contentLength) * 100 /
				float64(originalContentLength)
			sink.Add("data_saving", "percent", saving)
		} else {
			sink.Add("data_saving", "percent", 0.0)
		}
	}
	m.state = stateReported
	return nil
}

// declaredOriginalLength returns the marker-header value when present and
// parseable. An unparseable value is logged and treated as absent.
func (m *Meter) declaredOriginalLength(rec *trace.Record) (int64, bool) {
	if !rec.HasOriginalContentLength() {
		return 0, false
	}
	ocl, err := rec.OriginalContentLength()
	if err != nil {
		m.logger.Warn("ignoring declared original content length",
			zap.String("url", rec.URL),
			zap.Error(err))
		return 0, false
	}
	return ocl, true
}

// dataSavingRate is the per-resource saving fraction in [0, 1]. Cached
// responses, responses with no declared original size, and non-positive
// declared sizes all rate 0.
func dataSavingRate(rec *trace.Record, ocl, cl int64) float64 {
	if rec.FromCache || ocl <= 0 || ocl < cl {
		return 0.0
	}
	return float64(ocl-cl) / float64(ocl)
}
