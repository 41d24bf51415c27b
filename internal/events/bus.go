// Package events delivers typed transaction lifecycle events to in-process
// subscribers. Publishing is fire-and-forget: settlement never blocks on a
// slow consumer, and a saturated bus drops events rather than stall.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/payment-ledger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type identifies a lifecycle event.
type Type string

const (
	TransactionSettled        Type = "Transaction.settled"
	TransactionVoided         Type = "Transaction.voided"
	TransactionChecksExceeded Type = "Transaction.statusChecksExceeded"
	DepositFailure            Type = "Deposit.failure"
	WithdrawalFailure         Type = "Withdrawal.failure"
	PaymentTokenVerifyFailed  Type = "PaymentToken.verifyFailed"
)

// Event carries a lifecycle notification.
type Event struct {
	Type          Type
	TransactionID uuid.UUID
	Occurred      time.Time
	Detail        map[string]string
}

// Handler consumes events. Handlers run on the bus goroutine and should
// offload slow work themselves.
type Handler func(Event)

// Bus is a buffered in-process event dispatcher.
type Bus struct {
	ch       chan Event
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates a bus with the given buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{ch: make(chan Event, buffer)}
}

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event without blocking. When the buffer is full the
// event is dropped and counted; settlement progress always wins over
// notification delivery.
func (b *Bus) Publish(evt Event) {
	if evt.Occurred.IsZero() {
		evt.Occurred = time.Now()
	}
	select {
	case b.ch <- evt:
	default:
		observability.IncrementDroppedEvent(string(evt.Type))
		zap.L().Warn("event bus saturated, dropping event",
			zap.String("type", string(evt.Type)),
			zap.String("transaction_id", evt.TransactionID.String()))
	}
}

// Start dispatches events until the context is canceled.
func (b *Bus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-b.ch:
			b.dispatch(evt)
		}
	}
}

// Run starts dispatching in a goroutine.
func (b *Bus) Run(ctx context.Context) {
	go b.Start(ctx)
}

func (b *Bus) dispatch(evt Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(evt)
	}
}
