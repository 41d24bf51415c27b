// Package ops exposes the HTTP surface: health probes, Prometheus metrics,
// and the ledger API.
package ops

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayo6706/payment-ledger/internal/service"
	"github.com/ayo6706/payment-ledger/internal/tokens"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// apiRateLimit caps per-IP requests per second on the ledger API. Health
// probes and metrics scrapes are not limited.
const apiRateLimit = 50

type Router struct {
	db           *pgxpool.Pool
	redis        redis.Cmdable
	accounts     *service.AccountService
	transactions *service.TransactionService
	tokens       *tokens.Service
}

func NewRouter(db *pgxpool.Pool, redis redis.Cmdable, accounts *service.AccountService, transactions *service.TransactionService, tokenSvc *tokens.Service) *Router {
	return &Router{
		db:           db,
		redis:        redis,
		accounts:     accounts,
		transactions: transactions,
		tokens:       tokenSvc,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	health := newHealthHandler(api.db, api.redis)
	r.Get("/healthz/live", health.Live)
	r.Get("/healthz/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	accountHandler := newAccountHandler(api.accounts)
	transactionHandler := newTransactionHandler(api.transactions)
	tokenHandler := newTokenHandler(api.tokens)

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimiter(apiRateLimit))

		r.Post("/accounts", accountHandler.CreateAccount)
		r.Get("/accounts", accountHandler.ListAccounts)
		r.Get("/accounts/{id}", accountHandler.GetAccount)

		r.Post("/deposits", transactionHandler.CreateDeposit)
		r.Post("/withdrawals", transactionHandler.CreateWithdrawal)
		r.Post("/contracts", transactionHandler.CreateContract)
		r.Get("/transactions/{id}", transactionHandler.GetTransaction)

		r.Post("/payment-tokens", tokenHandler.CreateToken)
	})

	return r
}

// rateLimiter limits requests per IP on the ledger API routes.
func rateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit of %d req/s exceeded for this IP", rps))
		}),
	)
}
