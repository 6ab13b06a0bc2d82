package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/auraflora/shopbot-server-go/internal/ai"
	"github.com/auraflora/shopbot-server-go/internal/model"
	"github.com/auraflora/shopbot-server-go/internal/repository"
)

// Mock repositories

type mockSenderRepo struct {
	mock.Mock
}

func (m *mockSenderRepo) FindByID(ctx context.Context, senderID string) (*model.Sender, error) {
	args := m.Called(ctx, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Sender), args.Error(1)
}

func (m *mockSenderRepo) Upsert(ctx context.Context, senderID, name string) (*model.Sender, error) {
	args := m.Called(ctx, senderID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Sender), args.Error(1)
}

func (m *mockSenderRepo) SetActiveSession(ctx context.Context, senderID, sessionID string, createdAt time.Time) error {
	args := m.Called(ctx, senderID, sessionID, createdAt)
	return args.Error(0)
}

func (m *mockSenderRepo) ClearExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSenderRepo) WithTx(tx *sqlx.Tx) repository.SenderRepository {
	return m
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, id, senderID string) (*model.Session, error) {
	args := m.Called(ctx, id, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) TouchActivity(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *mockSessionRepo) MergeOrderData(ctx context.Context, id string, fields json.RawMessage) (*model.Session, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) ConfirmOrder(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

// Mock external clients

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListAvailable(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *mockCatalog) Validate(ctx context.Context, retailerID string) (*model.Product, error) {
	args := m.Called(ctx, retailerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

type mockWhatsAppSender struct {
	mock.Mock
}

func (m *mockWhatsAppSender) SendText(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

func (m *mockWhatsAppSender) SendImageWithCaption(ctx context.Context, to, imageURL, caption string) (string, error) {
	args := m.Called(ctx, to, imageURL, caption)
	return args.String(0), args.Error(1)
}

func (m *mockWhatsAppSender) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *mockWhatsAppSender) SendTyping(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyOrder(ctx context.Context, summary string) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Append(ctx context.Context, params model.CreateMessageParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (m *mockRecorder) AppendAndReadHistory(ctx context.Context, params model.CreateMessageParams) ([]model.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *mockRecorder) LatestBySender(ctx context.Context, senderID string) (*model.Message, error) {
	args := m.Called(ctx, senderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *mockRecorder) FindByID(ctx context.Context, id string) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Chat(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

type mockMediaFetcher struct {
	mock.Mock
}

func (m *mockMediaFetcher) FetchMedia(ctx context.Context, mediaID string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, mediaID)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	args := m.Called(ctx, audio, filename)
	return args.String(0), args.Error(1)
}
