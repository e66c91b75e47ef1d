// Package session fans inbound orders out to one worker goroutine per
// session: parallel across sessions, strictly ordered within one.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"order-gateway/internal/events"
	"order-gateway/internal/fix"
	"order-gateway/pkg/db"
)

// ErrRouterClosed is returned by Submit after Close.
var ErrRouterClosed = errors.New("session router closed")

// Pipeline is the risk surface the router drives per order.
type Pipeline interface {
	CheckOrder(ctx context.Context, o db.Order, acct db.Account, sessionID string) (bool, string)
}

// OrderProcessor is the post-risk handoff, implemented by order.Manager.
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, o db.Order, sessionID string, markPrice float64) error
}

// Store is the read surface the router needs before risk evaluation.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*db.Account, error)
}

// MarketData supplies the mark consulted once per inbound order.
type MarketData interface {
	LastTrade(ctx context.Context, ticker string) (float64, error)
}

// Router owns the per-session worker goroutines. Submit enqueues on
// the session's channel, creating the worker lazily on first use.
type Router struct {
	store     Store
	md        MarketData
	pipeline  Pipeline
	processor OrderProcessor
	gw        fix.Gateway
	bus       *events.Bus

	queueSize int

	mu      sync.Mutex
	workers map[string]chan db.Order
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
}

func NewRouter(store Store, md MarketData, pipeline Pipeline, processor OrderProcessor, gw fix.Gateway, bus *events.Bus, queueSize int) *Router {
	if queueSize <= 0 {
		queueSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		store:     store,
		md:        md,
		pipeline:  pipeline,
		processor: processor,
		gw:        gw,
		bus:       bus,
		queueSize: queueSize,
		workers:   make(map[string]chan db.Order),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit enqueues an order for its session, assigning an id when the
// counterparty did not supply one. It blocks only when the session's
// queue is full, preserving arrival order per session.
func (r *Router) Submit(o db.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRouterClosed
	}
	ch, ok := r.workers[o.SessionID]
	if !ok {
		ch = make(chan db.Order, r.queueSize)
		r.workers[o.SessionID] = ch
		r.wg.Add(1)
		go r.worker(o.SessionID, ch)
	}
	r.mu.Unlock()

	select {
	case ch <- o:
		return nil
	case <-r.ctx.Done():
		return ErrRouterClosed
	}
}

func (r *Router) worker(sessionID string, ch chan db.Order) {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case o := <-ch:
			r.handle(o, sessionID)
		}
	}
}

func (r *Router) handle(o db.Order, sessionID string) {
	ctx := r.ctx

	if reason, ok := validate(o); !ok {
		r.reject(o, sessionID, reason)
		return
	}

	acct, err := r.store.GetAccount(ctx, o.AccountID)
	if err != nil {
		log.Printf("session: account %s for order %s: %v", o.AccountID, o.ID, err)
		r.reject(o, sessionID, "Unknown account.")
		return
	}

	if ok, reason := r.pipeline.CheckOrder(ctx, o, *acct, sessionID); !ok {
		r.bus.Publish(events.EventRiskDenied, o.ID)
		r.reject(o, sessionID, reason)
		return
	}

	mark, err := r.md.LastTrade(ctx, o.Ticker)
	if err != nil {
		log.Printf("session: mark for %s on order %s: %v", o.Ticker, o.ID, err)
		r.reject(o, sessionID, "Failed to fetch market price.")
		return
	}

	if err := r.processor.ProcessOrder(ctx, o, sessionID, mark); err != nil {
		log.Printf("session: process order %s: %v", o.ID, err)
	}
}

// validate enforces the structural invariants before any risk check.
func validate(o db.Order) (string, bool) {
	if o.Quantity <= 0 {
		return "Order quantity must be positive.", false
	}
	if o.FilledQuantity > o.Quantity {
		return "Filled quantity exceeds order quantity.", false
	}
	if o.IsSpread() && len(o.Legs) < 2 {
		return "Invalid spread order: Less than two legs", false
	}
	return "", true
}

func (r *Router) reject(o db.Order, sessionID, reason string) {
	log.Printf("session: order %s rejected: %s", o.ID, reason)
	r.gw.SendReject(o, sessionID, reason)
}

// Close stops accepting orders, cancels in-flight handling and waits
// for every worker to exit.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
