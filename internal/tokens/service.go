package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/ayo6706/payment-ledger/internal/events"
	"github.com/ayo6706/payment-ledger/internal/gateway"
	"github.com/ayo6706/payment-ledger/internal/observability"
	"github.com/google/uuid"
)

// TokenStore is the persistence contract behind the token service.
type TokenStore interface {
	Lookup(ctx context.Context, owner uuid.UUID, reference string) (*Token, error)
	Insert(ctx context.Context, tok *Token) (bool, error)
}

// Service tokenizes funding sources through the gateway.
type Service struct {
	store   TokenStore
	gateway gateway.Gateway
	bus     *events.Bus
}

func NewService(store TokenStore, gw gateway.Gateway, bus *events.Bus) *Service {
	return &Service{store: store, gateway: gw, bus: bus}
}

// Create tokenizes a funding source for an owner. An existing token for the
// same source is returned as-is; concurrent creations converge on whichever
// insert won the unique constraint.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, source gateway.PaymentSource) (*Token, error) {
	existing, err := s.store.Lookup(ctx, owner, source.Reference)
	if err == nil {
		observability.IncrementTokenCreate("reused")
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	pt, err := s.gateway.CreatePaymentToken(ctx, source)
	if err != nil {
		observability.IncrementTokenCreate("failed")
		if errors.Is(err, gateway.ErrNotVerified) {
			s.bus.Publish(events.Event{
				Type:   events.PaymentTokenVerifyFailed,
				Detail: map[string]string{"owner": owner.String(), "reason": err.Error()},
			})
		}
		return nil, err
	}

	tok := &Token{
		ID:        uuid.New(),
		Owner:     owner,
		Token:     pt.Token,
		Reference: pt.Reference,
		Verified:  pt.Verified,
		Created:   time.Now(),
	}
	inserted, err := s.store.Insert(ctx, tok)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.store.Lookup(ctx, owner, source.Reference)
	}
	observability.IncrementTokenCreate("created")
	return tok, nil
}
