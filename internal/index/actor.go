// Package index serializes all access to the file index through one
// goroutine. The Actor owns the store; callers talk to it through a Client.
package index

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/pea/internal/errors"
	"github.com/Aman-CERP/pea/internal/metrics"
	"github.com/Aman-CERP/pea/internal/scanner"
	"github.com/Aman-CERP/pea/internal/search"
	"github.com/Aman-CERP/pea/internal/store"
)

// state is what a request runs against. Only the actor goroutine touches it.
type state struct {
	store       *store.Store
	names       *search.NameIndex
	receivedDir string
	logger      *slog.Logger
}

type result struct {
	value any
	err   error
}

type request struct {
	op      string
	mutates bool
	ctx     context.Context
	run     func(ctx context.Context, st *state) (any, error)
	reply   chan result
}

// Config configures an Actor.
type Config struct {
	// ReceivedDir is where CreateFile writes uploads.
	ReceivedDir string
	// Names is kept in step with the store when set.
	Names  *search.NameIndex
	Logger *slog.Logger
}

// Actor processes requests one at a time in receipt order. Directory walks
// run on the caller's goroutine with scanner; only their commit is a request.
type Actor struct {
	st          *state
	scanner     *scanner.Scanner
	scanWorkers int
	requests    chan request
	quit        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// NewActor takes ownership of s and starts the processing goroutine. The
// caller must not use s directly afterwards.
func NewActor(s *store.Store, cfg Config) *Actor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Names != nil {
		if err := cfg.Names.Rebuild(s.AllFiles()); err != nil {
			logger.Warn("name index rebuild failed", slog.String("error", err.Error()))
		}
		s.SetListener(cfg.Names)
	}
	metrics.SetIndexFiles(s.Len())

	a := &Actor{
		st: &state{
			store:       s,
			names:       cfg.Names,
			receivedDir: cfg.ReceivedDir,
			logger:      logger,
		},
		scanner:     s.Scanner(),
		scanWorkers: s.ScanWorkers(),
		requests:    make(chan request),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Actor) loop() {
	defer close(a.done)
	for {
		// a pending request must not win over a Stop that already happened
		select {
		case <-a.quit:
			return
		default:
		}

		select {
		case <-a.quit:
			return
		case req := <-a.requests:
			a.handle(req)
		}
	}
}

func (a *Actor) handle(req request) {
	if !req.mutates {
		if err := req.ctx.Err(); err != nil {
			req.reply <- result{err: err}
			return
		}
	}

	ctx := req.ctx
	if req.mutates {
		// a caller that gives up must not abandon a write halfway
		ctx = context.WithoutCancel(req.ctx)
	}

	start := time.Now()
	value, err := a.safeRun(ctx, req)
	metrics.RecordIndexOperation(req.op, time.Since(start), err)
	if req.mutates {
		metrics.SetIndexFiles(a.st.store.Len())
	}
	if err != nil {
		a.st.logger.Debug("index request failed",
			slog.String("op", req.op),
			slog.String("error", err.Error()))
	}
	req.reply <- result{value: value, err: err}
}

func (a *Actor) safeRun(ctx context.Context, req request) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.st.logger.Error("index request panicked", slog.String("op", req.op), slog.Any("panic", r))
			err = errors.InternalError("index request panicked: "+req.op, nil)
		}
	}()
	return req.run(ctx, a.st)
}

// submit sends a request and waits for its reply or for ctx. handed reports
// whether the actor received the request; once it has, a mutation runs to
// completion even when the caller stops waiting.
func (a *Actor) submit(ctx context.Context, op string, mutates bool, run func(context.Context, *state) (any, error)) (value any, handed bool, err error) {
	req := request{op: op, mutates: mutates, ctx: ctx, run: run, reply: make(chan result, 1)}

	select {
	case <-a.quit:
		return nil, false, unavailable()
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case a.requests <- req:
	}

	select {
	case res := <-req.reply:
		return res.value, true, res.err
	case <-ctx.Done():
		return nil, true, ctx.Err()
	}
}

// Stop refuses new requests, waits for the in-flight one and returns. Safe
// to call more than once.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}

// Close stops the actor and closes the store and name index.
func (a *Actor) Close() error {
	a.Stop()
	if a.st.names != nil {
		_ = a.st.names.Close()
	}
	return a.st.store.Close()
}

// Done is closed once the actor has stopped.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

func unavailable() error {
	return errors.New(errors.ErrCodeIndexUnavailable, "index is not running", nil)
}
