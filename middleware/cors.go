package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/vitalvas/fastapify/router"
	"golang.org/x/net/publicsuffix"
)

// ErrWildcardCredentials is returned when AllowedOrigins contains "*" and
// AllowCredentials is set.
var ErrWildcardCredentials = errors.New("cors: wildcard origin cannot be combined with credentials")

// ErrInvalidOriginPattern is returned for an origin pattern with more than
// one wildcard.
var ErrInvalidOriginPattern = errors.New("cors: origin pattern contains multiple wildcards")

var defaultCORSMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins holds exact origins, "*", or patterns with a single
	// wildcard such as "https://*.example.com".
	AllowedOrigins []string

	// AllowedDomains admits any origin whose host is the domain itself or
	// one of its subdomains, on any scheme or port. Entries are reduced to
	// their registrable domain ("api.example.co.uk" admits "example.co.uk").
	AllowedDomains []string

	// AllowedMethods are advertised on preflight responses.
	AllowedMethods []string

	// AllowedHeaders are advertised on preflight responses. When empty the
	// requested headers are reflected.
	AllowedHeaders []string

	ExposeHeaders    []string
	AllowCredentials bool

	// MaxAge in seconds for preflight caching. Zero omits the header.
	MaxAge int
}

type originPattern struct {
	prefix string
	suffix string
}

type corsPolicy struct {
	cfg       CORSConfig
	anyOrigin bool
	exact     []string
	patterns  []originPattern
	domains   []string
}

// CORS returns a middleware implementing CORS for the configured origins.
// Preflight requests from an admitted origin are answered with 204 without
// reaching the router. Disallowed origins get no CORS headers.
func CORS(cfg CORSConfig) (router.MiddlewareFunc, error) {
	p, err := newCORSPolicy(cfg)
	if err != nil {
		return nil, err
	}

	return p.handle, nil
}

func newCORSPolicy(cfg CORSConfig) (*corsPolicy, error) {
	p := &corsPolicy{cfg: cfg}

	if len(p.cfg.AllowedMethods) == 0 {
		p.cfg.AllowedMethods = defaultCORSMethods
	}

	for _, o := range cfg.AllowedOrigins {
		o = strings.ToLower(strings.TrimSpace(o))

		switch {
		case o == "*":
			p.anyOrigin = true
		case strings.Contains(o, "*"):
			prefix, suffix, _ := strings.Cut(o, "*")
			if strings.Contains(suffix, "*") {
				return nil, ErrInvalidOriginPattern
			}

			p.patterns = append(p.patterns, originPattern{prefix: prefix, suffix: suffix})
		case o != "":
			p.exact = append(p.exact, o)
		}
	}

	if p.anyOrigin && cfg.AllowCredentials {
		return nil, ErrWildcardCredentials
	}

	for _, d := range cfg.AllowedDomains {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}

		if reg, err := publicsuffix.EffectiveTLDPlusOne(d); err == nil {
			d = reg
		}

		p.domains = append(p.domains, d)
	}

	return p, nil
}

func (p *corsPolicy) allowed(origin string) bool {
	lower := strings.ToLower(origin)

	if p.anyOrigin || slices.Contains(p.exact, lower) {
		return true
	}

	for _, pt := range p.patterns {
		if len(lower) >= len(pt.prefix)+len(pt.suffix) &&
			strings.HasPrefix(lower, pt.prefix) &&
			strings.HasSuffix(lower, pt.suffix) {
			return true
		}
	}

	if len(p.domains) == 0 {
		return false
	}

	u, err := url.Parse(lower)
	if err != nil || u.Hostname() == "" {
		return false
	}

	host := u.Hostname()
	if host == "localhost" {
		return slices.Contains(p.domains, host)
	}

	reg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}

	return slices.Contains(p.domains, reg)
}

func (p *corsPolicy) handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")

		if !p.allowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		if p.anyOrigin && !p.cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}

		if p.cfg.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			p.preflight(w, r)
			return
		}

		if len(p.cfg.ExposeHeaders) > 0 {
			h.Set("Access-Control-Expose-Headers", strings.Join(p.cfg.ExposeHeaders, ","))
		}

		next.ServeHTTP(w, r)
	})
}

func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	h.Set("Access-Control-Allow-Methods", strings.Join(p.cfg.AllowedMethods, ","))

	if len(p.cfg.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(p.cfg.AllowedHeaders, ","))
	} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}

	if p.cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.cfg.MaxAge))
	}

	w.WriteHeader(http.StatusNoContent)
}
