package ingress

import (
	"net"
	"net/http"
	"strings"
	"time"

	"slot-gateway/async/slot/application"
	"slot-gateway/async/slot/domain"
)

type KeyFunc func(r *http.Request) string

type RateLimitOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
	// Listener é o rótulo fixo usado nas estatísticas (padrão "ratelimit").
	// Nunca derive do path: cada path viraria uma série nova.
	Listener string
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro elemento não vazio do X-Forwarded-For (cliente original)
			for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
				if ip := strings.TrimSpace(hop); ip != "" {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// RateLimit aplica token bucket por cliente antes de a requisição chegar ao
// hub. Decisões são registradas em Stats (se houver) com Hub="http",
// Listener=opts.Listener e Source=chave do cliente, best-effort.
func RateLimit(opts RateLimitOptions) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.RetryAfter == 0 {
		opts.RetryAfter = 1 * time.Second
	}
	if opts.Listener == "" {
		opts.Listener = "ratelimit"
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	svc := application.PacingService{
		Store:      opts.Store,
		RetryAfter: opts.RetryAfter,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := domain.Key(opts.KeyFn(r))

			dec := svc.Decide(key)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", string(key))
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
				if dec.Remaining >= 0 {
					w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
				}
			}

			if opts.Stats != nil {
				ev := domain.StatsEvent{
					Hub:      "http",
					Listener: opts.Listener,
					Source:   key,
					Accepted: dec.Allowed,
					At:       time.Now(),
				}
				if !dec.Allowed {
					ev.Reason = domain.ReasonPaced
				}
				_ = opts.Stats.Record(r.Context(), ev)
			}
			if !dec.Allowed {
				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
