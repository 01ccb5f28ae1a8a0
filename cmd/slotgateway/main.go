package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"slot-gateway/async/slot"
	"slot-gateway/async/slot/domain"
	"slot-gateway/async/slot/infra"
	"slot-gateway/middleware/ingress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.logDev)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var stores infra.MultiStatsStore
	var rdb *redis.Client
	if cfg.statsEnabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.statsRedisAddr,
			Password: cfg.statsRedisPassword,
			DB:       cfg.statsRedisDB,
		})

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			logger.Fatal("redis stats ping error", zap.Error(err))
		}

		stores = append(stores, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackSources(cfg.statsTrackSources),
		))
	}

	reg := prometheus.NewRegistry()
	if cfg.metricsEnabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		prom, err := infra.NewPromStatsStore(reg, "slotgateway")
		if err != nil {
			logger.Fatal("prometheus stats error", zap.Error(err))
		}
		stores = append(stores, prom)
	}

	hubOpts := []slot.HubOption{
		slot.WithName("gateway"),
		slot.WithLogger(logger),
	}
	if len(stores) > 0 {
		hubOpts = append(hubOpts, slot.WithStats(stores))
	}
	if cfg.sourceRPS > 0 {
		pacer := infra.NewStore(cfg.sourceRPS, cfg.sourceBurst)
		pacer.StartJanitor(ctx)
		hubOpts = append(hubOpts, slot.WithPacer(pacer))
	}

	hub := slot.NewHub(cfg.hubTimeout, hubOpts...)
	readings := slot.MakeListener[slot.Tagged[Reading]](hub, "readings")

	var tl tally
	tallySlot := slot.New(tl.run(readings))
	hub.Bind(tallySlot)
	tallySlot.Spawn()

	sourceIDs := make(map[string]int, len(cfg.sources))
	for i, s := range cfg.sources {
		sourceIDs[s] = i
	}
	signals := ingress.NewSignals(readings, ingress.SignalsOptions{
		Allowed:    cfg.sources,
		MaxSources: cfg.maxSources,
	})

	mux := http.NewServeMux()
	mux.Handle("POST /events/{source}", ingress.SourceHandler(signals, func(source string, r Reading) slot.Tagged[Reading] {
		r.Source = source
		id, ok := sourceIDs[source]
		if !ok {
			id = -1
		}
		return slot.Tag(id, r)
	}, ingress.EmitOptions{
		RetryAfter: cfg.retryAfter,
		Logger:     logger,
	}))
	mux.HandleFunc("GET /totals", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tl.snapshot())
	})
	if cfg.metricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	h := http.Handler(mux)
	if cfg.rateEnabled {
		store := infra.NewStore(cfg.rateRPS, cfg.rateBurst)
		store.StartJanitor(ctx)

		var httpStats domain.StatsStore
		if len(stores) > 0 {
			httpStats = stores
		}
		h = ingress.RateLimit(ingress.RateLimitOptions{
			Store:               store,
			Stats:               httpStats,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.retryAfter,
			AddRateLimitHeaders: cfg.addHeaders,
			Listener:            "events",
		})(h)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("slot gateway listening",
		zap.String("addr", cfg.listenAddr),
		zap.Duration("hubTimeout", cfg.hubTimeout),
		zap.Strings("sources", cfg.sources),
		zap.Int("maxSources", cfg.maxSources),
	)
	logger.Info("rate",
		zap.Bool("enabled", cfg.rateEnabled),
		zap.Float64("rps", cfg.rateRPS),
		zap.Int("burst", cfg.rateBurst),
		zap.String("keyHeader", cfg.rateKeyHeader),
		zap.Bool("trustXFF", cfg.trustXFF),
		zap.Float64("sourceRPS", cfg.sourceRPS),
		zap.Int("sourceBurst", cfg.sourceBurst),
	)
	logger.Info("stats",
		zap.Bool("redis", cfg.statsEnabled),
		zap.String("redisAddr", cfg.statsRedisAddr),
		zap.String("bucket", cfg.statsBucket),
		zap.Duration("ttl", cfg.statsTTL),
		zap.Bool("metrics", cfg.metricsEnabled),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// fecha o servidor antes do hub: nenhum emit novo chega ao slot parado
		err := srv.Shutdown(shutdownCtx)
		hub.Close()
		if rdb != nil {
			err = multierr.Append(err, rdb.Close())
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("slot gateway stopped with error", zap.Error(err))
	}
	logger.Info("slot gateway stopped")
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

type config struct {
	listenAddr string
	hubTimeout time.Duration
	sources    []string
	maxSources int

	rateEnabled   bool
	rateRPS       float64
	rateBurst     int
	rateKeyHeader string
	trustXFF      bool
	retryAfter    time.Duration
	addHeaders    bool

	sourceRPS   float64
	sourceBurst int

	statsEnabled       bool
	statsRedisAddr     string
	statsRedisPassword string
	statsRedisDB       int
	statsPrefix        string
	statsTTL           time.Duration
	statsBucket        string
	statsTrackSources  bool

	metricsEnabled bool
	logDev         bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.hubTimeout = getenvDurationDefault("HUB_TIMEOUT", 100*time.Millisecond)
	cfg.sources = getenvList("SOURCES")
	// sem SOURCES, nomes vêm da URL: limite de origens criadas sob demanda
	cfg.maxSources = getenvIntDefault("MAX_SOURCES", ingress.DefaultMaxSources)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", true)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 10)
	// IMPORTANTE: o "burst" permite uma rajada inicial de requisições.
	// Com RPS abaixo de 1 o padrão 20 deixa passar as primeiras ~20.
	if burst, ok := getenvInt("RATE_BURST"); ok {
		cfg.rateBurst = burst
	} else {
		cfg.rateBurst = 20
		if getenvIsSet("RATE_RPS") && cfg.rateRPS > 0 && cfg.rateRPS < 1 {
			cfg.rateBurst = 1
		}
	}
	cfg.rateKeyHeader = os.Getenv("RATE_KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	// 0 desliga o pacing por origem no hub
	cfg.sourceRPS = getenvFloatDefault("SOURCE_RPS", 0)
	cfg.sourceBurst = getenvIntDefault("SOURCE_BURST", 5)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsRedisAddr = getenvDefault("STATS_REDIS_ADDR", "")
	cfg.statsRedisPassword = os.Getenv("STATS_REDIS_PASSWORD")
	cfg.statsRedisDB = getenvIntDefault("STATS_REDIS_DB", 0)
	cfg.statsPrefix = getenvDefault("STATS_PREFIX", "slot:stats")
	cfg.statsTTL = getenvDurationDefault("STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("STATS_BUCKET", "minute")
	cfg.statsTrackSources = getenvBoolDefault("STATS_TRACK_SOURCES", false)

	cfg.metricsEnabled = getenvBoolDefault("METRICS_ENABLED", true)
	cfg.logDev = getenvBoolDefault("LOG_DEV", false)

	if cfg.statsEnabled && strings.TrimSpace(cfg.statsRedisAddr) == "" {
		return config{}, errors.New("STATS_REDIS_ADDR is required when STATS_ENABLED=true")
	}
	if len(cfg.sources) == 0 && cfg.maxSources <= 0 {
		return config{}, errors.New("MAX_SOURCES must be > 0 when SOURCES is empty")
	}
	if cfg.hubTimeout <= 0 {
		return config{}, errors.New("HUB_TIMEOUT must be > 0")
	}
	if cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.sourceRPS < 0 {
		return config{}, errors.New("SOURCE_RPS must be >= 0")
	}
	if cfg.sourceRPS > 0 && cfg.sourceBurst <= 0 {
		return config{}, errors.New("SOURCE_BURST must be > 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvList lê uma lista separada por vírgulas, ignorando itens vazios.
func getenvList(k string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(k), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvInt(k string) (int, bool) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func getenvIsSet(k string) bool {
	v, ok := os.LookupEnv(k)
	return ok && v != ""
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
