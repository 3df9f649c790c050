package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/gramstracker/backend/src/models"
)

const (
	testViewingPIN   = "7381"
	testEmergencyPIN = "9924"
)

func newTestGate(t *testing.T) (HistoryGate, LedgerService) {
	t.Helper()
	svc, _ := newStockedService(t, 1000, 0.2)
	gate := NewHistoryGate(testViewingPIN, testEmergencyPIN, svc, time.Minute)
	return gate, svc
}

func TestAuthorizeWithViewingPIN(t *testing.T) {
	gate, svc := newTestGate(t)
	_, err := svc.Sell(testProfile, 100, models.PaymentCash)
	require.NoError(t, err)

	ok, err := gate.Authorize(testProfile, testViewingPIN)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, gate.IsAuthorized(testProfile))

	// A normal authorization reads, never mutates.
	snapshot, err := svc.Snapshot(testProfile)
	require.NoError(t, err)
	assert.Len(t, snapshot.History, 1)
}

func TestAuthorizeRejectsUnknownPIN(t *testing.T) {
	gate, _ := newTestGate(t)

	ok, err := gate.Authorize(testProfile, "0000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, gate.IsAuthorized(testProfile))
}

// The duress PIN wipes history and the undo pointer, yet reports the same
// successful outcome as the viewing PIN.
func TestAuthorizeWithDuressPINWipesSilently(t *testing.T) {
	gate, svc := newTestGate(t)
	_, err := svc.Sell(testProfile, 100, models.PaymentCash)
	require.NoError(t, err)

	normalOK, err := gate.Authorize(testProfile, testViewingPIN)
	require.NoError(t, err)
	gate.Deauthorize(testProfile)

	duressOK, err := gate.Authorize(testProfile, testEmergencyPIN)
	require.NoError(t, err)
	assert.Equal(t, normalOK, duressOK)
	assert.True(t, gate.IsAuthorized(testProfile))

	snapshot, err := svc.Snapshot(testProfile)
	require.NoError(t, err)
	assert.Empty(t, snapshot.History)
	assert.Nil(t, snapshot.LastTransaction)
	assert.Equal(t, 900.0, snapshot.Stock)
}

func TestDeauthorizeEndsViewingSession(t *testing.T) {
	gate, _ := newTestGate(t)

	_, err := gate.Authorize(testProfile, testViewingPIN)
	require.NoError(t, err)
	require.True(t, gate.IsAuthorized(testProfile))

	gate.Deauthorize(testProfile)
	assert.False(t, gate.IsAuthorized(testProfile))

	// Idempotent.
	gate.Deauthorize(testProfile)
	assert.False(t, gate.IsAuthorized(testProfile))
}

func TestAuthorizationIsPerProfile(t *testing.T) {
	gate, _ := newTestGate(t)

	_, err := gate.Authorize("profile-a", testViewingPIN)
	require.NoError(t, err)
	assert.True(t, gate.IsAuthorized("profile-a"))
	assert.False(t, gate.IsAuthorized("profile-b"))
}
