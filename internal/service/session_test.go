package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/auraflora/shopbot-server-go/internal/model"
)

func newTestSessionManager(senderRepo *mockSenderRepo, sessionRepo *mockSessionRepo, ttl time.Duration) *SessionManager {
	return NewSessionManager(senderRepo, sessionRepo, ttl)
}

func TestNewSessionID(t *testing.T) {
	m := newTestSessionManager(&mockSenderRepo{}, &mockSessionRepo{}, 7*24*time.Hour)
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	m.now = func() time.Time { return fixed }

	id := m.NewSessionID()

	pattern := regexp.MustCompile(`^20250314_092653_589793_[0-9a-f]{8}$`)
	assert.True(t, pattern.MatchString(id), "unexpected id format: %s", id)

	assert.NotEqual(t, id, m.NewSessionID(), "ids should not collide")
}

func TestGetOrCreateActiveReturnsFreshSession(t *testing.T) {
	senderRepo := &mockSenderRepo{}
	sessionRepo := &mockSessionRepo{}
	m := newTestSessionManager(senderRepo, sessionRepo, 7*24*time.Hour)

	createdAt := time.Now().Add(-time.Hour)
	sessionID := "20250314_092653_589793_abcd1234"
	existing := &model.Session{ID: sessionID, SenderID: "15550001111", CreatedAt: createdAt}

	sessionRepo.On("FindByID", mock.Anything, sessionID).Return(existing, nil)

	sender := &model.Sender{
		SenderID:         "15550001111",
		ActiveSessionID:  &sessionID,
		SessionCreatedAt: &createdAt,
	}
	got, err := m.GetOrCreateActive(context.Background(), sender)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got.ID)

	sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrCreateActiveRollsOverExpiredSession(t *testing.T) {
	senderRepo := &mockSenderRepo{}
	sessionRepo := &mockSessionRepo{}
	m := newTestSessionManager(senderRepo, sessionRepo, 7*24*time.Hour)

	createdAt := time.Now().Add(-8 * 24 * time.Hour)
	oldID := "20250306_080000_000001_aaaa1111"

	fresh := &model.Session{ID: "new-session", SenderID: "15550001111", CreatedAt: time.Now()}
	sessionRepo.On("Create", mock.Anything, mock.Anything, "15550001111").Return(fresh, nil)
	senderRepo.On("SetActiveSession", mock.Anything, "15550001111", "new-session", mock.Anything).Return(nil)

	sender := &model.Sender{
		SenderID:         "15550001111",
		ActiveSessionID:  &oldID,
		SessionCreatedAt: &createdAt,
	}
	got, err := m.GetOrCreateActive(context.Background(), sender)
	require.NoError(t, err)
	assert.Equal(t, "new-session", got.ID)

	sessionRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	senderRepo.AssertExpectations(t)
}

func TestGetOrCreateActiveNoPointerCreates(t *testing.T) {
	senderRepo := &mockSenderRepo{}
	sessionRepo := &mockSessionRepo{}
	m := newTestSessionManager(senderRepo, sessionRepo, 7*24*time.Hour)

	fresh := &model.Session{ID: "new-session", SenderID: "15550001111", CreatedAt: time.Now()}
	sessionRepo.On("Create", mock.Anything, mock.Anything, "15550001111").Return(fresh, nil)
	senderRepo.On("SetActiveSession", mock.Anything, "15550001111", "new-session", mock.Anything).Return(nil)

	got, err := m.GetOrCreateActive(context.Background(), &model.Sender{SenderID: "15550001111"})
	require.NoError(t, err)
	assert.Equal(t, "new-session", got.ID)
}

func TestGetOrCreateActiveRebuildsDanglingPointer(t *testing.T) {
	senderRepo := &mockSenderRepo{}
	sessionRepo := &mockSessionRepo{}
	m := newTestSessionManager(senderRepo, sessionRepo, 7*24*time.Hour)

	createdAt := time.Now().Add(-time.Hour)
	missingID := "20250314_000000_000001_gone0000"
	sessionRepo.On("FindByID", mock.Anything, missingID).Return(nil, nil)

	fresh := &model.Session{ID: "new-session", SenderID: "15550001111", CreatedAt: time.Now()}
	sessionRepo.On("Create", mock.Anything, mock.Anything, "15550001111").Return(fresh, nil)
	senderRepo.On("SetActiveSession", mock.Anything, "15550001111", "new-session", mock.Anything).Return(nil)

	sender := &model.Sender{
		SenderID:         "15550001111",
		ActiveSessionID:  &missingID,
		SessionCreatedAt: &createdAt,
	}
	got, err := m.GetOrCreateActive(context.Background(), sender)
	require.NoError(t, err)
	assert.Equal(t, "new-session", got.ID)
}

func TestEnsureSender(t *testing.T) {
	senderRepo := &mockSenderRepo{}
	m := newTestSessionManager(senderRepo, &mockSessionRepo{}, 7*24*time.Hour)

	sender := &model.Sender{SenderID: "15550001111", Name: "Anna"}
	senderRepo.On("Upsert", mock.Anything, "15550001111", "Anna").Return(sender, nil)

	got, err := m.EnsureSender(context.Background(), "15550001111", "Anna")
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Name)
}
