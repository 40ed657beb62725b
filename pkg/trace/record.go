package trace

import (
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
)

// OriginalContentLengthHeader carries the size of a resource before any
// compression or transcoding optimization was applied to it. Its value is
// trusted as reported.
const OriginalContentLengthHeader = "X-Original-Content-Length"

// Record is a read-only snapshot of one HTTP response captured during a
// page-load trace. Records are constructed once by an event source and must
// not be mutated afterwards.
type Record struct {
	// URL identifies the resource.
	URL string
	// Header holds the response headers. Lookups via http.Header are
	// case-insensitive.
	Header http.Header
	// Body is the captured response payload. It may be nil if the body was
	// not captured.
	Body []byte
	// BodyBase64 is true when Body holds base64-encoded text rather than
	// raw bytes. Binary payloads (images etc.) are captured this way.
	BodyBase64 bool
	// FromCache is true when the response was satisfied from a local cache
	// rather than the network.
	FromCache bool
}

// Signature returns a stable content-addressed identifier for the record's
// URL, used to namespace per-resource metric names. Two records with the
// same URL share a signature. Collisions are treated as negligible.
func (r *Record) Signature() string {
	sum := md5.Sum([]byte(r.URL)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// HasOriginalContentLength reports whether the response declared an
// original (pre-optimization) size.
func (r *Record) HasOriginalContentLength() bool {
	return r.Header.Get(OriginalContentLengthHeader) != ""
}

// OriginalContentLength returns the declared original size of the resource.
// It errors when the marker header is absent or does not hold an integer.
func (r *Record) OriginalContentLength() (int64, error) {
	v := r.Header.Get(OriginalContentLengthHeader)
	if v == "" {
		return 0, fmt.Errorf("no %s header for '%v'",
			OriginalContentLengthHeader, r.URL)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value '%v' for '%v'",
			OriginalContentLengthHeader, v, r.URL)
	}
	return n, nil
}
