package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/ayo6706/payment-ledger/internal/gateway"
	"github.com/ayo6706/payment-ledger/internal/service"
	"github.com/ayo6706/payment-ledger/internal/tokens"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type healthHandler struct {
	db    *pgxpool.Pool
	redis redis.Cmdable
}

func newHealthHandler(db *pgxpool.Pool, redis redis.Cmdable) *healthHandler {
	return &healthHandler{db: db, redis: redis}
}

// Live always reports OK; if the process is up, it's live.
func (h *healthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready checks dependencies like DB and Redis.
func (h *healthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			respondError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type accountHandler struct {
	svc *service.AccountService
}

func newAccountHandler(svc *service.AccountService) *accountHandler {
	return &accountHandler{svc: svc}
}

type createAccountRequest struct {
	Owner    uuid.UUID `json:"owner"`
	Currency string    `json:"currency"`
}

func (h *accountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.svc.CreateAccount(r.Context(), req.Owner, req.Currency)
	if err != nil {
		if errors.Is(err, service.ErrMissingOwner) || errors.Is(err, service.ErrMissingCurrency) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}
	respondJSON(w, http.StatusCreated, acct)
}

func (h *accountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.svc.GetAccount(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "account not found")
		return
	}
	respondJSON(w, http.StatusOK, acct)
}

func (h *accountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, err := uuid.Parse(r.URL.Query().Get("owner"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	accounts, err := h.svc.ListAccounts(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

type transactionHandler struct {
	svc *service.TransactionService
}

func newTransactionHandler(svc *service.TransactionService) *transactionHandler {
	return &transactionHandler{svc: svc}
}

type createDepositRequest struct {
	Amount   domain.Money   `json:"amount"`
	Currency string         `json:"currency"`
	Payees   []domain.Payee `json:"payee"`
	Hold     bool           `json:"hold"`
}

type createWithdrawalRequest struct {
	Source   uuid.UUID      `json:"source"`
	Amount   domain.Money   `json:"amount"`
	Currency string         `json:"currency"`
	Payees   []domain.Payee `json:"payee"`
}

func (h *transactionHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.svc.CreateDeposit(r.Context(), service.CreateDepositRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Payees:   req.Payees,
		Hold:     req.Hold,
	})
	h.respondTransaction(w, txn, err)
}

func (h *transactionHandler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.svc.CreateWithdrawal(r.Context(), service.CreateWithdrawalRequest{
		Source:   req.Source,
		Amount:   req.Amount,
		Currency: req.Currency,
		Payees:   req.Payees,
	})
	h.respondTransaction(w, txn, err)
}

func (h *transactionHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req createWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.svc.CreateContract(r.Context(), service.CreateContractRequest{
		Source:   req.Source,
		Amount:   req.Amount,
		Currency: req.Currency,
		Payees:   req.Payees,
	})
	h.respondTransaction(w, txn, err)
}

func (h *transactionHandler) respondTransaction(w http.ResponseWriter, txn *domain.Transaction, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, txn)
	case errors.Is(err, gateway.ErrDeclined):
		// The transaction exists but was voided; return it with the decline.
		respondJSON(w, http.StatusPaymentRequired, txn)
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingCurrency),
		errors.Is(err, service.ErrUnallocatedAmount),
		errors.Is(err, domain.ErrInvalidPayee),
		errors.Is(err, domain.ErrInvalidPayeeGroup),
		errors.Is(err, domain.ErrInvalidPayeeDependency):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "failed to create transaction")
	}
}

func (h *transactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.svc.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "transaction not found")
		return
	}
	respondJSON(w, http.StatusOK, txn)
}

type tokenHandler struct {
	svc *tokens.Service
}

func newTokenHandler(svc *tokens.Service) *tokenHandler {
	return &tokenHandler{svc: svc}
}

type createTokenRequest struct {
	Owner  uuid.UUID             `json:"owner"`
	Source gateway.PaymentSource `json:"source"`
}

func (h *tokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tok, err := h.svc.Create(r.Context(), req.Owner, req.Source)
	if err != nil {
		if errors.Is(err, gateway.ErrNotVerified) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, "failed to create payment token")
		return
	}
	respondJSON(w, http.StatusCreated, tok)
}
