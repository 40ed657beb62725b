package size

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/mbhatt/pageweight/pkg/trace"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverOpts{Logger: zap.NewNop()})
	require.NoError(t, err)
	return r
}

func gzipLevel9(t *testing.T, body []byte) int64 {
	t.Helper()
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return int64(buf.Len())
}

func zlibLevel9(t *testing.T, body []byte) int64 {
	t.Helper()
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return int64(buf.Len())
}

func TestResolverNeedsLogger(t *testing.T) {
	_, err := NewResolver(ResolverOpts{})
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	compressible := []byte(strings.Repeat("all work and no play ", 50))

	tests := []struct {
		name   string
		record *trace.Record
		want   int64
	}{
		{
			name: "no captured body resolves to zero",
			record: &trace.Record{
				URL:    "https://example.com/app.js",
				Header: http.Header{},
			},
			want: 0,
		},
		{
			name: "plain body resolves to raw length",
			record: &trace.Record{
				URL:    "https://example.com/app.js",
				Header: http.Header{},
				Body:   []byte("hello world"),
			},
			want: 11,
		},
		{
			name: "base64 body resolves to decoded length",
			record: &trace.Record{
				URL:        "https://example.com/logo.png",
				Header:     http.Header{},
				Body:       []byte(base64.StdEncoding.EncodeToString([]byte("hello world"))),
				BodyBase64: true,
			},
			want: 11,
		},
		{
			name: "gzip body resolves to re-compressed length",
			record: &trace.Record{
				URL: "https://example.com/app.js",
				Header: http.Header{
					"Content-Encoding": []string{"gzip"},
				},
				Body: compressible,
			},
			want: gzipLevel9(t, compressible),
		},
		{
			name: "content-encoding is matched case-insensitively",
			record: &trace.Record{
				URL: "https://example.com/app.js",
				Header: http.Header{
					"Content-Encoding": []string{"GZIP"},
				},
				Body: compressible,
			},
			want: gzipLevel9(t, compressible),
		},
		{
			name: "deflate body resolves to zlib-compressed length",
			record: &trace.Record{
				URL: "https://example.com/styles.css",
				Header: http.Header{
					"Content-Encoding": []string{"deflate"},
				},
				Body: compressible,
			},
			want: zlibLevel9(t, compressible),
		},
		{
			name: "unsupported encoding falls back to Content-Length header",
			record: &trace.Record{
				URL: "https://example.com/app.js",
				Header: http.Header{
					"Content-Encoding": []string{"br"},
					"Content-Length":   []string{"500"},
				},
				Body: []byte("decompressed body"),
			},
			want: 500,
		},
		{
			name: "unsupported encoding without header falls back to raw body",
			record: &trace.Record{
				URL: "https://example.com/app.js",
				Header: http.Header{
					"Content-Encoding": []string{"br"},
				},
				Body: []byte("decompressed body"),
			},
			want: 17,
		},
		{
			name: "unsupported encoding without body or header resolves to zero",
			record: &trace.Record{
				URL: "https://example.com/app.js",
				Header: http.Header{
					"Content-Encoding": []string{"br"},
				},
			},
			want: 0,
		},
		{
			name: "malformed base64 falls back to Content-Length header",
			record: &trace.Record{
				URL: "https://example.com/logo.png",
				Header: http.Header{
					"Content-Length": []string{"123"},
				},
				Body:       []byte("%%% not base64 %%%"),
				BodyBase64: true,
			},
			want: 123,
		},
		{
			name: "malformed base64 without fallbacks resolves to raw body length",
			record: &trace.Record{
				URL:        "https://example.com/logo.png",
				Header:     http.Header{},
				Body:       []byte("%%%"),
				BodyBase64: true,
			},
			want: 3,
		},
		{
			name: "garbage Content-Length is skipped in the fallback chain",
			record: &trace.Record{
				URL: "https://example.com/app.js",
				Header: http.Header{
					"Content-Encoding": []string{"br"},
					"Content-Length":   []string{"a lot"},
				},
				Body: []byte("body"),
			},
			want: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testResolver(t)
			require.Equal(t, tt.want, r.Resolve(tt.record))
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	body := []byte(strings.Repeat("pack my box with five dozen liquor jugs ", 25))
	rec := &trace.Record{
		URL: "https://example.com/app.js",
		Header: http.Header{
			"Content-Encoding": []string{"gzip"},
		},
		Body: body,
	}

	r := testResolver(t)
	first := r.Resolve(rec)
	require.Equal(t, first, r.Resolve(rec), "memoized result differs")

	fresh := testResolver(t)
	require.Equal(t, first, fresh.Resolve(rec),
		"resolution is not deterministic across resolvers")
}

func TestResolveMemoizes(t *testing.T) {
	rec := &trace.Record{
		URL:    "https://example.com/app.js",
		Header: http.Header{},
		Body:   []byte("hello world"),
	}
	r := testResolver(t)
	require.Equal(t, int64(11), r.Resolve(rec))
	require.Len(t, r.memo, 1)
	require.Equal(t, int64(11), r.Resolve(rec))
	require.Len(t, r.memo, 1)
}
