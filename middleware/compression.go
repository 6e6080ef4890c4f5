package middleware

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/vitalvas/fastapify/router"
)

// ErrInvalidCompressionLevel is returned for a gzip level outside
// [gzip.HuffmanOnly, gzip.BestCompression].
var ErrInvalidCompressionLevel = errors.New("compression: invalid level")

// skipCompression lists content type prefixes that are already compressed.
var skipCompression = []string{
	"image/",
	"video/",
	"audio/",
	"application/zip",
	"application/gzip",
	"application/x-gzip",
	"application/zstd",
}

// Gzip compresses responses for clients accepting gzip. Level zero selects
// gzip.DefaultCompression.
func Gzip(level int) (router.MiddlewareFunc, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}

	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, ErrInvalidCompressionLevel
	}

	pool := &sync.Pool{
		New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Accept-Encoding")

			gw := &gzipResponseWriter{ResponseWriter: w, pool: pool}
			defer gw.close()

			next.ServeHTTP(gw, r)
		})
	}, nil
}

func acceptsGzip(header string) bool {
	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.TrimSpace(name)
		if name != "gzip" && name != "*" {
			continue
		}

		params = strings.ReplaceAll(params, " ", "")
		if params == "q=0" || params == "q=0.0" || params == "q=0.00" || params == "q=0.000" {
			return false
		}

		return true
	}

	return false
}

// gzipResponseWriter decides on the first write whether the body is
// compressed, based on the response headers at that point.
type gzipResponseWriter struct {
	http.ResponseWriter
	pool *sync.Pool

	gz      *gzip.Writer
	status  int
	started bool
}

func (g *gzipResponseWriter) WriteHeader(code int) {
	if g.status == 0 {
		g.status = code
	}
}

func (g *gzipResponseWriter) start() {
	if g.started {
		return
	}

	g.started = true

	if g.status == 0 {
		g.status = http.StatusOK
	}

	h := g.Header()
	if g.compressible(h) {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")

		g.gz = g.pool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}

	g.ResponseWriter.WriteHeader(g.status)
}

func (g *gzipResponseWriter) compressible(h http.Header) bool {
	if h.Get("Content-Encoding") != "" {
		return false
	}

	if g.status < http.StatusOK || g.status == http.StatusNoContent || g.status == http.StatusNotModified {
		return false
	}

	ct := strings.ToLower(h.Get("Content-Type"))
	for _, prefix := range skipCompression {
		if strings.HasPrefix(ct, prefix) {
			return false
		}
	}

	return true
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	g.start()

	if g.gz != nil {
		return g.gz.Write(b)
	}

	return g.ResponseWriter.Write(b)
}

func (g *gzipResponseWriter) Flush() {
	g.start()

	if g.gz != nil {
		_ = g.gz.Flush()
	}

	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (g *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

func (g *gzipResponseWriter) close() {
	if !g.started {
		if g.status != 0 {
			g.ResponseWriter.WriteHeader(g.status)
		}

		return
	}

	if g.gz != nil {
		_ = g.gz.Close()
		g.pool.Put(g.gz)
		g.gz = nil
	}
}
