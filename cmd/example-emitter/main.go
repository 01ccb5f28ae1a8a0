package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"slot-gateway/async/slot"
	"slot-gateway/async/slot/infra"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Exemplo: produtores concorrentes emitindo num hub dentro do próprio processo
// (sem HTTP). Cada cenário imprime quantos emits foram aceitos e recusados.
func main() {
	logger, err := newLogger(os.Getenv("LOG_DEV"))
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	scenarios := []struct {
		name string
		run  func(context.Context, *zap.Logger) error
	}{
		{"A: quick slot, back-to-back emits", scenarioA},
		{"B: busy slot, second emit times out", scenarioB},
		{"C: fan-in from concurrent producers with retry", scenarioC},
	}
	for _, sc := range scenarios {
		fmt.Printf("== scenario %s\n", sc.name)
		if err := sc.run(ctx, logger); err != nil {
			log.Fatalf("scenario %s: %v", sc.name, err)
		}
	}
}

// newLogger só liga logs (desenvolvimento) com LOG_DEV=true.
func newLogger(dev string) (*zap.Logger, error) {
	if on, _ := strconv.ParseBool(dev); on {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

func scenarioA(_ context.Context, logger *zap.Logger) error {
	stats := infra.NewMemoryStatsStore()
	hub := slot.NewHub(50*time.Millisecond, slot.WithName("scenario-a"), slot.WithLogger(logger), slot.WithStats(stats))
	defer hub.Close()
	li := slot.MakeListener[int](hub, "ints")

	s := slot.New(func() {
		for {
			fmt.Printf("  [slot] %d\n", li.Await())
		}
	})
	hub.Bind(s)
	s.Spawn()

	var sig slot.Signal[int]
	sig.Connect(li)
	fmt.Printf("  emit(1) = %v\n", sig.Emit(1))
	fmt.Printf("  emit(2) = %v\n", sig.Emit(2))

	printTotals(stats)
	return nil
}

func scenarioB(ctx context.Context, logger *zap.Logger) error {
	stats := infra.NewMemoryStatsStore()
	hub := slot.NewHub(50*time.Millisecond, slot.WithName("scenario-b"), slot.WithLogger(logger), slot.WithStats(stats))
	defer hub.Close()
	li := slot.MakeListener[int](hub, "ints")

	s := slot.New(func() {
		for {
			v := li.Await()
			fmt.Printf("  [slot] %d (working 200ms)\n", v)
			time.Sleep(200 * time.Millisecond)
		}
	})
	hub.Bind(s)
	s.Spawn()

	var sig slot.Signal[int]
	sig.Connect(li)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("  emit(1) = %v\n", sig.EmitContext(gctx, 1))
		return nil
	})
	g.Go(func() error {
		time.Sleep(10 * time.Millisecond)
		fmt.Printf("  emit(2) = %v\n", sig.EmitContext(gctx, 2))
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	printTotals(stats)
	return nil
}

func scenarioC(ctx context.Context, logger *zap.Logger) error {
	const (
		producers = 2
		perSource = 5
	)

	stats := infra.NewMemoryStatsStore(infra.WithTrackSources(true))
	hub := slot.NewHub(5*time.Millisecond, slot.WithName("scenario-c"), slot.WithLogger(logger), slot.WithStats(stats))
	defer hub.Close()
	li := slot.MakeListener[slot.Tagged[int]](hub, "fan-in")

	var mu sync.Mutex
	seen := make(map[int]int, producers)
	s := slot.New(func() {
		for {
			ev := li.Await()
			// segura o gate um pouco para forçar disputa entre produtores
			time.Sleep(8 * time.Millisecond)
			mu.Lock()
			seen[ev.ID]++
			mu.Unlock()
		}
	})
	hub.Bind(s)
	s.Spawn()

	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < producers; id++ {
		sig := slot.NewSignal[slot.Tagged[int]]("producer-" + strconv.Itoa(id))
		sig.Connect(li)

		// recusas são reenviadas no ritmo do limiter
		retry := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
		g.Go(func() error {
			for n := 0; n < perSource; n++ {
				for !sig.EmitContext(gctx, slot.Tag(id, n)) {
					if err := retry.Wait(gctx); err != nil {
						return fmt.Errorf("producer %d: %w", id, err)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	mu.Lock()
	for id := 0; id < producers; id++ {
		fmt.Printf("  [slot] producer %d delivered %d\n", id, seen[id])
	}
	mu.Unlock()
	for src, c := range stats.BySource() {
		fmt.Printf("  source %s: accepted=%d rejected=%d\n", src, c.Accepted, c.Rejected)
	}
	printTotals(stats)
	return nil
}

func printTotals(stats *infra.MemoryStatsStore) {
	total := stats.Total()
	fmt.Printf("  totals: accepted=%d rejected=%d\n", total.Accepted, total.Rejected)
	for reason, n := range stats.Rejections() {
		fmt.Printf("  rejected[%s]=%d\n", reason, n)
	}
}
