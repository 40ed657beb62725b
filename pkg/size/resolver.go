package size

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/mbhatt/pageweight/pkg/trace"
	"go.uber.org/zap"
)

// compressionLevel is the level used when re-compressing captured bodies to
// estimate their on-wire size. The level is part of this tool's contract:
// changing it changes measured data-saving numbers across runs.
const compressionLevel = gzip.BestCompression

const maxLoggedURLLen = 100

// Resolver determines the effective transferred byte size of captured
// responses. Results are memoized per record, so resolving the same record
// twice returns the identical value without recomputation.
//
// A Resolver is scoped to one measurement run and is not safe for
// concurrent use.
type Resolver struct {
	logger *zap.Logger
	memo   map[*trace.Record]int64
}

type ResolverOpts struct {
	Logger *zap.Logger
}

func NewResolver(opts ResolverOpts) (*Resolver, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("no logger")
	}
	return &Resolver{
		logger: opts.Logger,
		memo:   map[*trace.Record]int64{},
	}, nil
}

// Resolve returns the best-available estimate, in bytes, of what was
// actually transferred for the response. It always produces a non-negative
// size: failures in the body-derived path are logged and converted into
// header/body fallbacks rather than propagated.
func (r *Resolver) Resolve(rec *trace.Record) int64 {
	if n, ok := r.memo[rec]; ok {
		return n
	}
	n := r.resolve(rec)
	r.memo[rec] = n
	return n
}

// strategy produces a definite size estimate for a record, or errors to
// signal that the next strategy in the chain should be tried.
type strategy func(*trace.Record) (int64, error)

func (r *Resolver) resolve(rec *trace.Record) int64 {
	n, err := contentLengthFromBody(rec)
	if err == nil {
		return n
	}
	r.logger.Warn("failed to get content length from body",
		zap.String("url", truncateURL(rec.URL)),
		zap.Error(err))

	for _, s := range []strategy{fromContentLengthHeader, fromRawBodyLength} {
		n, err := s(rec)
		if err != nil {
			continue
		}
		return n
	}
	return 0
}

// contentLengthFromBody estimates the transferred size from the captured
// body alone. Captured bodies are always already decompressed by the
// browser, so for compressed responses the only way to recover an on-wire
// estimate is to re-compress.
func contentLengthFromBody(rec *trace.Record) (int64, error) {
	if rec.BodyBase64 {
		if len(rec.Body) == 0 {
			return 0, nil
		}
		decoded, err := base64.StdEncoding.DecodeString(string(rec.Body))
		if err != nil {
			return 0, MalformedBodyError{URL: rec.URL, Err: err}
		}
		return int64(len(decoded)), nil
	}
	encoding := rec.Header.Get("Content-Encoding")
	switch {
	case encoding == "":
		// a missing body measures as zero transferred bytes
		return int64(len(rec.Body)), nil
	case strings.EqualFold(encoding, "gzip"):
		if len(rec.Body) == 0 {
			return 0, nil
		}
		return gzippedLength(rec.Body)
	case strings.EqualFold(encoding, "deflate"):
		if len(rec.Body) == 0 {
			return 0, nil
		}
		return deflatedLength(rec.Body)
	default:
		// even with no captured body, an encoding we cannot reproduce
		// makes the body path unusable; let the fallbacks decide
		return 0, UnsupportedEncodingError{Encoding: encoding, URL: rec.URL}
	}
}

func fromContentLengthHeader(rec *trace.Record) (int64, error) {
	v := rec.Header.Get("Content-Length")
	if v == "" {
		return 0, fmt.Errorf("no Content-Length header")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Content-Length '%v': %v", v, err)
	}
	return n, nil
}

func fromRawBodyLength(rec *trace.Record) (int64, error) {
	if len(rec.Body) == 0 {
		return 0, fmt.Errorf("no captured body")
	}
	return int64(len(rec.Body)), nil
}

func gzippedLength(body []byte) (int64, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return 0, fmt.Errorf("init gzip writer: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		return 0, fmt.Errorf("gzip response body: %v", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("gzip response body: %v", err)
	}
	return int64(buf.Len()), nil
}

func deflatedLength(body []byte) (int64, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, compressionLevel)
	if err != nil {
		return 0, fmt.Errorf("init zlib writer: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		return 0, fmt.Errorf("deflate response body: %v", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("deflate response body: %v", err)
	}
	return int64(buf.Len()), nil
}

func truncateURL(url string) string {
	if len(url) > maxLoggedURLLen {
		return url[:maxLoggedURLLen]
	}
	return url
}
