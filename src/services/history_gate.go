package services

import (
	"crypto/subtle"
	"time"

	"github.com/patrickmn/go-cache"
)

type historyGate struct {
	viewingPIN   string
	emergencyPIN string
	ledgers      LedgerService

	// sessions holds one entry per authorized profile key; expiry ends the
	// viewing session the same way navigating away does.
	sessions *cache.Cache
}

// NewHistoryGate builds the PIN gate in front of history and billing reads.
func NewHistoryGate(viewingPIN, emergencyPIN string, ledgers LedgerService, sessionTTL time.Duration) HistoryGate {
	return &historyGate{
		viewingPIN:   viewingPIN,
		emergencyPIN: emergencyPIN,
		ledgers:      ledgers,
		sessions:     cache.New(sessionTTL, 2*sessionTTL),
	}
}

func pinMatches(pin, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(pin), []byte(expected)) == 1
}

func (g *historyGate) Authorize(profileKey, pin string) (bool, error) {
	if pinMatches(pin, g.viewingPIN) {
		g.sessions.SetDefault(profileKey, true)
		return true, nil
	}
	if pinMatches(pin, g.emergencyPIN) {
		// Duress path: wipe first, then grant access exactly like the
		// normal PIN so the two outcomes cannot be told apart.
		if err := g.ledgers.WipeHistory(profileKey); err != nil {
			return false, err
		}
		g.sessions.SetDefault(profileKey, true)
		return true, nil
	}
	return false, nil
}

func (g *historyGate) Deauthorize(profileKey string) {
	g.sessions.Delete(profileKey)
}

func (g *historyGate) IsAuthorized(profileKey string) bool {
	_, ok := g.sessions.Get(profileKey)
	return ok
}
