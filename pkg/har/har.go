// Package har exposes responses recorded in an HTTP Archive (HAR) file as a
// trace event source. Chrome's exporter decompresses bodies before writing
// them out and base64-encodes binary content, which is exactly the record
// shape the size resolver expects.
package har

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mbhatt/pageweight/pkg/trace"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// FileSource implements trace.Source over a HAR file on disk. The trace was
// captured ahead of time, so StartCapture and StopCapture only gate record
// access; Records parses the file.
type FileSource struct {
	path   string
	logger *zap.Logger
}

func NewFileSource(path string, logger *zap.Logger) (*FileSource, error) {
	if logger == nil {
		return nil, fmt.Errorf("no logger")
	}
	return &FileSource{
		path:   path,
		logger: logger,
	}, nil
}

func (s *FileSource) StartCapture() error {
	s.logger.Debug("replaying pre-captured trace", zap.String("file", s.path))
	return nil
}

func (s *FileSource) StopCapture() error {
	return nil
}

func (s *FileSource) Records() ([]*trace.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read trace file: %v", err)
	}
	records, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse '%v': %v", s.path, err)
	}
	return records, nil
}

// Parse extracts response records from raw HAR JSON, in entry order.
func Parse(data []byte) ([]*trace.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("not valid JSON")
	}
	entries := gjson.GetBytes(data, "log.entries")
	if !entries.Exists() || !entries.IsArray() {
		return nil, fmt.Errorf("no log.entries array")
	}
	var records []*trace.Record
	entries.ForEach(func(_, entry gjson.Result) bool {
		records = append(records, recordFromEntry(entry))
		return true
	})
	return records, nil
}

func recordFromEntry(entry gjson.Result) *trace.Record {
	header := http.Header{}
	entry.Get("response.headers").ForEach(func(_, h gjson.Result) bool {
		header.Add(h.Get("name").String(), h.Get("value").String())
		return true
	})

	content := entry.Get("response.content")
	var body []byte
	if text := content.Get("text"); text.Exists() && text.String() != "" {
		body = []byte(text.String())
	}

	return &trace.Record{
		URL:        entry.Get("request.url").String(),
		Header:     header,
		Body:       body,
		BodyBase64: strings.EqualFold(content.Get("encoding").String(), "base64"),
		FromCache:  servedFromCache(entry),
	}
}

// servedFromCache derives the cache flag from Chrome's HAR extension
// fields: an explicit _fromCache marker, or a recorded transfer size of
// zero bytes.
func servedFromCache(entry gjson.Result) bool {
	if entry.Get("_fromCache").Exists() {
		return true
	}
	if ts := entry.Get("response._transferSize"); ts.Exists() && ts.Int() == 0 {
		return true
	}
	return false
}
