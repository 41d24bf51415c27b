// Package tokens stores gateway payment tokens, keyed by owner and funding
// source reference. Postgres is the source of truth with a unique
// constraint on (owner, reference); Redis is a read-through cache so
// repeated deposits skip a round trip.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/payment-ledger/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("payment token not found")

const redisKeyPrefix = "payment-token"

// Token is a stored processor token for a verified funding source.
type Token struct {
	ID        uuid.UUID `json:"id"`
	Owner     uuid.UUID `json:"owner"`
	Token     string    `json:"token"`
	Reference string    `json:"reference"`
	Verified  bool      `json:"verified"`
	Created   time.Time `json:"created"`

	// ServedBy records which tier answered a lookup, for diagnostics.
	ServedBy string `json:"-"`
}

type Store struct {
	redis redis.Cmdable
	db    *pgxpool.Pool
	ttl   time.Duration
}

func NewStore(redis redis.Cmdable, db *pgxpool.Pool, ttl time.Duration) *Store {
	return &Store{redis: redis, db: db, ttl: ttl}
}

// Lookup returns the stored token for an owner's funding source.
func (s *Store) Lookup(ctx context.Context, owner uuid.UUID, reference string) (*Token, error) {
	if s.redis != nil {
		val, err := s.redis.Get(ctx, redisKey(owner, reference)).Result()
		if err == nil {
			var tok Token
			if json.Unmarshal([]byte(val), &tok) == nil {
				tok.ServedBy = "redis"
				return &tok, nil
			}
		} else if err != redis.Nil {
			zap.L().Warn("redis token lookup failed", zap.Error(err))
		}
	}

	var tok Token
	var id, ownerID pgtype.UUID
	err := s.db.QueryRow(ctx, `
		SELECT id, owner, token, reference, verified, created_at
		FROM payment_tokens WHERE owner = $1 AND reference = $2
	`, repository.ToPgUUID(owner), reference).Scan(&id, &ownerID, &tok.Token, &tok.Reference, &tok.Verified, &tok.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup payment token: %w", err)
	}
	tok.ID = repository.FromPgUUID(id)
	tok.Owner = repository.FromPgUUID(ownerID)
	tok.ServedBy = "postgres"
	s.cache(ctx, tok)
	return &tok, nil
}

// Insert stores a token. Returns false when another writer already holds
// the (owner, reference) slot; the caller should look the winner up.
func (s *Store) Insert(ctx context.Context, tok *Token) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO payment_tokens (id, owner, token, reference, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (owner, reference) DO NOTHING
	`, repository.ToPgUUID(tok.ID), repository.ToPgUUID(tok.Owner), tok.Token, tok.Reference, tok.Verified)
	if err != nil {
		return false, fmt.Errorf("insert payment token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	s.cache(ctx, *tok)
	return true, nil
}

func (s *Store) cache(ctx context.Context, tok Token) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(tok)
	if err != nil {
		zap.L().Warn("marshal token cache", zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, redisKey(tok.Owner, tok.Reference), payload, s.ttl).Err(); err != nil {
		zap.L().Warn("redis token cache set failed", zap.Error(err))
	}
}

func redisKey(owner uuid.UUID, reference string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, owner, reference)
}
