package ingress

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"slot-gateway/async/slot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EmitOptions struct {
	// RejectStatus é o status quando o hub recusa o evento (padrão 503).
	RejectStatus int
	// RetryAfter vai no header Retry-After das recusas (padrão 1s).
	RetryAfter time.Duration
	// MaxBodyBytes limita o corpo JSON (padrão 1 MiB).
	MaxBodyBytes int64
	Logger       *zap.Logger
}

func (o EmitOptions) withDefaults() EmitOptions {
	if o.RejectStatus == 0 {
		o.RejectStatus = http.StatusServiceUnavailable
	}
	if o.RetryAfter <= 0 {
		o.RetryAfter = 1 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type emitResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

// EmitHandler decodifica o corpo JSON em T e emite em sig.
func EmitHandler[T any](sig *slot.Signal[T], opts EmitOptions) http.Handler {
	return emitHandler(func(r *http.Request, v T) (*slot.Signal[T], T, bool) {
		return sig, v, true
	}, opts)
}

// DefaultMaxSources limita as origens criadas sob demanda quando não há
// lista de permitidas.
const DefaultMaxSources = 64

type SignalsOptions struct {
	// Allowed fecha o conjunto de origens aceitas. Vazio aceita qualquer nome
	// até MaxSources.
	Allowed []string
	// MaxSources limita as origens sem lista (padrão DefaultMaxSources).
	MaxSources int
}

// Signals guarda um signal por origem, todos ligados ao mesmo listener
// (fan-in). O número de origens é sempre limitado: nomes vêm da URL.
type Signals[T any] struct {
	mu      sync.Mutex
	li      *slot.Listener[T]
	allowed map[string]bool
	max     int
	byName  map[string]*slot.Signal[T]
}

func NewSignals[T any](li *slot.Listener[T], opts SignalsOptions) *Signals[T] {
	s := &Signals[T]{
		li:     li,
		max:    opts.MaxSources,
		byName: make(map[string]*slot.Signal[T]),
	}
	if s.max <= 0 {
		s.max = DefaultMaxSources
	}
	if len(opts.Allowed) > 0 {
		s.allowed = make(map[string]bool, len(opts.Allowed))
		for _, a := range opts.Allowed {
			s.allowed[a] = true
		}
		s.max = len(s.allowed)
	}
	return s
}

// Get retorna (criando na primeira vez) o signal da origem. false quando a
// origem não é permitida ou o limite de origens já foi atingido.
func (s *Signals[T]) Get(source string) (*slot.Signal[T], bool) {
	if source == "" || (s.allowed != nil && !s.allowed[source]) {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.byName[source]
	if !ok {
		if len(s.byName) >= s.max {
			return nil, false
		}
		sig = slot.NewSignal[T](source)
		sig.Connect(s.li)
		s.byName[source] = sig
	}
	return sig, true
}

// Len retorna quantas origens já têm signal.
func (s *Signals[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byName)
}

// SourceHandler emite no signal da origem indicada pelo path value
// "source" (ex.: rota "POST /events/{source}"). O corpo é decodificado em In
// e bind monta o valor do listener (tipicamente carimbando a origem).
// Origem recusada por Signals.Get responde 404.
func SourceHandler[In, T any](set *Signals[T], bind func(source string, v In) T, opts EmitOptions) http.Handler {
	return emitHandler(func(r *http.Request, in In) (*slot.Signal[T], T, bool) {
		source := r.PathValue("source")
		sig, ok := set.Get(source)
		if !ok {
			var zero T
			return nil, zero, false
		}
		return sig, bind(source, in), true
	}, opts)
}

func emitHandler[In, T any](pick func(r *http.Request, in In) (*slot.Signal[T], T, bool), opts EmitOptions) http.Handler {
	opts = opts.withDefaults()
	log := opts.Logger

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		var in In
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes))
		if err := dec.Decode(&in); err != nil {
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			http.Error(w, http.StatusText(status), status)
			return
		}

		sig, v, ok := pick(r, in)
		if !ok {
			http.Error(w, "unknown source", http.StatusNotFound)
			return
		}

		id := uuid.NewString()
		w.Header().Set("X-Event-Id", id)

		if !sig.EmitContext(r.Context(), v) {
			log.Debug("event rejected", zap.String("id", id), zap.String("source", sig.Source()))
			w.Header().Set("Retry-After", retryAfterSeconds(opts.RetryAfter))
			http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(emitResponse{ID: id, Accepted: true})
	})
}
