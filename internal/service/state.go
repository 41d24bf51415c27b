package service

import (
	"strings"

	"github.com/ayo6706/payment-ledger/internal/domain"
)

var transactionTransitions = map[string]map[string]struct{}{
	domain.TxStatusCreated: {
		domain.TxStatusAuthorized: {},
		domain.TxStatusSettled:    {},
		domain.TxStatusVoided:     {},
	},
	domain.TxStatusAuthorized: {
		domain.TxStatusSettled: {},
		domain.TxStatusVoided:  {},
	},
	domain.TxStatusSettled: {},
	domain.TxStatusVoided:  {},
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func canTransition(current, next string) bool {
	current = normalizeState(current)
	next = normalizeState(next)
	nextStates, ok := transactionTransitions[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}
