package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/enums"
	"github.com/bazar-market/bazar-backend/pkg/logger"
	"github.com/bazar-market/bazar-backend/pkg/outbox"
	"github.com/bazar-market/bazar-backend/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first := orderCanceledRow(t, 0)
	second := orderCanceledRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	tr := &fakeTransport{errs: []error{errors.New("unavailable"), nil}}
	dlq := &fakeDLQ{}
	svc := newTestService(t, repo, tr, dlq)

	fetched, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, repo.published)
	assert.Empty(t, dlq.entries)
}

func TestPublishUsesAggregateKeyAndAttributes(t *testing.T) {
	row := orderCanceledRow(t, 0)
	tr := &fakeTransport{}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{row}}, tr, &fakeDLQ{})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)

	require.Len(t, tr.sent, 1)
	sent := tr.sent[0]
	assert.Equal(t, "orders-topic", sent.topic)
	assert.Equal(t, row.AggregateID.String(), sent.key)
	assert.Equal(t, string(enums.EventOrderCanceled), sent.attrs["event_type"])
	assert.Equal(t, "evt-"+row.ID.String(), sent.attrs["event_id"])
	assert.JSONEq(t, string(row.Payload), string(sent.data))
}

func TestUnknownEventGoesToDLQ(t *testing.T) {
	row := orderCanceledRow(t, 0)
	row.EventType = "mystery"
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQ{}
	tr := &fakeTransport{}
	svc := newTestService(t, repo, tr, dlq)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tr.sent)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
	assert.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
}

func TestLastAttemptGoesToDLQ(t *testing.T) {
	row := orderCanceledRow(t, 4)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQ{}
	svc := newTestService(t, repo, &fakeTransport{errs: []error{errors.New("timeout")}}, dlq)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	assert.Contains(t, *dlq.entries[0].ErrorMessage, "timeout")
	assert.Empty(t, repo.failed)
}

func TestNonRetryableTransportErrorGoesToDLQ(t *testing.T) {
	row := orderCanceledRow(t, 0)
	dlq := &fakeDLQ{}
	tr := &fakeTransport{errs: []error{registry.NewNonRetryableError(errors.New("message too large"))}}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{row}}, tr, dlq)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
}

func TestRunStopsWhenTransportIsDown(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeTransport{pingErr: errors.New("no brokers")}, &fakeDLQ{})
	assert.Error(t, svc.Run(context.Background()))
}

func TestRunReturnsOnCancel(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeTransport{}, &fakeDLQ{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, svc.Run(ctx))
}

func newTestService(t *testing.T, repo outboxRepository, tr transport, dlq dlqRepository) *Service {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{
		OrdersTopic:        "orders-topic",
		PaymentsTopic:      "payments-topic",
		SubscriptionsTopic: "subscriptions-topic",
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Outbox:     config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 5},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         fakeDB{},
		Transport:  tr,
		Repository: repo,
		DLQ:        dlq,
		Resolver:   reg,
	})
	require.NoError(t, err)
	return svc
}

func orderCanceledRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	data, err := json.Marshal(map[string]any{"order_id": uuid.NewString(), "refund_cents": 1500})
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "evt-" + id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID: id,
		EventRecord: models.EventRecord{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       payload,
		},
		AttemptCount: attempts,
		CreatedAt:    time.Now().UTC(),
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type sentMessage struct {
	topic string
	key   string
	data  []byte
	attrs map[string]string
}

type fakeTransport struct {
	pingErr error
	errs    []error
	sent    []sentMessage
}

func (f *fakeTransport) Ping(context.Context) error { return f.pingErr }

func (f *fakeTransport) Publish(_ context.Context, topic, key string, data []byte, attrs map[string]string) error {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{topic: topic, key: key, data: data, attrs: attrs})
	return nil
}
