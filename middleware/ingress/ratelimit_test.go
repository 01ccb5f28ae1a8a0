package ingress

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"slot-gateway/async/slot/domain"
	"slot-gateway/async/slot/infra"
)

func TestRateLimit_AllowsThenRejectsSameKey(t *testing.T) {
	store := infra.NewStore(0.02, 1)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := RateLimit(RateLimitOptions{
		Store:               store,
		RejectStatus:        http.StatusTooManyRequests,
		RetryAfter:          1 * time.Second,
		AddRateLimitHeaders: true,
	})(next)

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodPost, "http://example/events/a", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-RateLimit-Key"); got != "10.0.0.1" {
		t.Fatalf("expected X-RateLimit-Key=10.0.0.1, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-RPS"); got != "0.02" {
		t.Fatalf("expected X-RateLimit-RPS=0.02, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Burst"); got != "1" {
		t.Fatalf("expected X-RateLimit-Burst=1, got %q", got)
	}
	if got := w1.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected X-RateLimit-Remaining=0, got %q", got)
	}

	// 2) segunda deve bloquear (burst=1 e rps bem baixo)
	r2 := httptest.NewRequest(http.MethodPost, "http://example/events/a", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	// 1 token a 0.02/s: ~50s até o próximo
	if got := w2.Header().Get("Retry-After"); got != "49" && got != "50" {
		t.Fatalf("expected Retry-After near 50s, got %q", got)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestRateLimit_KeyByHeader(t *testing.T) {
	store := infra.NewStore(0.02, 1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RateLimit(RateLimitOptions{
		Store:     store,
		KeyHeader: "X-Api-Key",
	})(next)

	// chaves diferentes => cada uma tem seu próprio limiter
	for _, key := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodPost, "http://example/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		r.Header.Set("X-Api-Key", key)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for key %s, got %d", key, w.Code)
		}
	}
}

func TestRateLimit_RetryAfterNeverBelowConfiguredFloor(t *testing.T) {
	// a 10/s o próximo token chega em ~100ms; o piso de 2.5s vence
	store := infra.NewStore(10, 1)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := RateLimit(RateLimitOptions{
		Store:      store,
		RetryAfter: 2500 * time.Millisecond,
	})(next)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
		r.RemoteAddr = "10.0.0.2:1"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if i == 1 {
			if w.Code != http.StatusTooManyRequests {
				t.Fatalf("expected default 429, got %d", w.Code)
			}
			if got := w.Header().Get("Retry-After"); got != "2" {
				t.Fatalf("expected Retry-After=2, got %q", got)
			}
		}
	}
}

func TestRateLimit_RecordsDecisionsInStats(t *testing.T) {
	store := infra.NewStore(0.02, 1)
	stats := infra.NewMemoryStatsStore(infra.WithTrackSources(true))

	h := RateLimit(RateLimitOptions{
		Store: store,
		Stats: stats,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "http://example/events/x"+strconv.Itoa(i), nil)
		r.RemoteAddr = "10.0.0.3:1"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	total := stats.Total()
	if total.Accepted != 1 || total.Rejected != 2 {
		t.Fatalf("expected 1 accepted and 2 rejected, got %+v", total)
	}
	if got := stats.Rejections()[domain.ReasonPaced]; got != 2 {
		t.Fatalf("expected 2 paced rejections, got %d", got)
	}
	// paths distintos não criam listeners novos
	if n := len(stats.ByListener()); n != 1 {
		t.Fatalf("expected a single listener label, got %+v", stats.ByListener())
	}
	if got := stats.ByListener()["ratelimit"]; got.Accepted != 1 || got.Rejected != 2 {
		t.Fatalf("expected default listener label, got %+v", stats.ByListener())
	}
	if got := stats.BySource()["10.0.0.3"]; got.Rejected != 2 {
		t.Fatalf("expected source 10.0.0.3 tracked, got %+v", stats.BySource())
	}
}

func TestRateLimit_CustomListenerLabel(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	h := RateLimit(RateLimitOptions{
		Store:    infra.NewStore(10, 10),
		Stats:    stats,
		Listener: "events",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, path := range []string{"/events/a", "/events/b", "/nope", "/totals"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "http://example"+path, nil))
	}
	if got := stats.ByListener(); len(got) != 1 || got["events"].Accepted != 4 {
		t.Fatalf("expected all requests under one label, got %+v", got)
	}
}

func TestDefaultKeyFunc(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		trustXFF   bool
		remoteAddr string
		set        map[string]string
		want       string
	}{
		{"header wins and is trimmed", "X-Client", true, "10.0.0.1:1234",
			map[string]string{"X-Client": " sensor-7 ", "X-Forwarded-For": "1.2.3.4"}, "sensor-7"},
		{"blank header falls through", "X-Client", false, "10.0.0.1:1234",
			map[string]string{"X-Client": "   "}, "10.0.0.1"},
		{"first xff hop", "", true, "10.0.0.9:5555",
			map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"}, "1.2.3.4"},
		{"empty first xff hop is skipped", "", true, "10.0.0.9:5555",
			map[string]string{"X-Forwarded-For": " , ,5.6.7.8"}, "5.6.7.8"},
		{"xff ignored when untrusted", "", false, "10.0.0.9:5555",
			map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.9"},
		{"ipv6 remote addr", "", false, "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"remote addr without port", "", false, "unix-socket", nil, "unix-socket"},
		{"no remote addr", "", false, "", nil, "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "http://example/events/a", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.set {
				r.Header.Set(k, v)
			}
			if got := DefaultKeyFunc(tc.header, tc.trustXFF)(r); got != tc.want {
				t.Fatalf("expected key %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRateLimit_ClientKeyReachesHeadersAndStatsOnSourceRoute(t *testing.T) {
	li, got := startCollector(t, time.Second, nil)
	stats := infra.NewMemoryStatsStore(infra.WithTrackSources(true))

	mux := http.NewServeMux()
	mux.Handle("POST /events/{source}", SourceHandler(NewSignals(li, SignalsOptions{}), func(source string, v reading) reading {
		v.Source = source
		return v
	}, EmitOptions{}))

	h := RateLimit(RateLimitOptions{
		Store:               infra.NewStore(0.02, 2),
		Stats:               stats,
		KeyHeader:           "X-Api-Key",
		AddRateLimitHeaders: true,
	})(mux)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "http://example/events/door", strings.NewReader(`{"value":1}`))
		r.Header.Set("X-Api-Key", "tenant-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
		if key := w.Header().Get("X-RateLimit-Key"); key != "tenant-1" {
			t.Fatalf("expected X-RateLimit-Key=tenant-1, got %q", key)
		}
		if want := strconv.Itoa(max(1-i, 0)); w.Header().Get("X-RateLimit-Remaining") != want {
			t.Fatalf("request %d: expected remaining %s, got %q", i, want, w.Header().Get("X-RateLimit-Remaining"))
		}
	}

	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if c := stats.BySource()[domain.Key("tenant-1")]; c.Accepted != 2 || c.Rejected != 1 {
		t.Fatalf("expected client key as stats source, got %+v", stats.BySource())
	}
	if len(got()) != 2 {
		t.Fatalf("expected 2 deliveries to the slot, got %d", len(got()))
	}
}
