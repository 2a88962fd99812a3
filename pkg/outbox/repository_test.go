package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/db/sqlitetest"
	"github.com/bazar-market/bazar-backend/pkg/enums"
)

func TestServiceEmitWritesEnvelope(t *testing.T) {
	conn := sqlitetest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	aggregateID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   aggregateID,
			Data:          map[string]string{"reason": "buyer"},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.JSONEq(t, `{"reason":"buyer"}`, string(envelope.Data))
}

func TestServiceEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := sqlitetest.Open(t)
	repo := NewRepository(conn)

	first := seedEvent(t, conn, time.Now().Add(-time.Minute))
	second := seedEvent(t, conn, time.Now())

	var fetched []models.OutboxEvent
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Len(t, fetched, 2)
	require.Equal(t, first.ID, fetched[0].ID)

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.MarkPublishedTx(tx, first.ID); err != nil {
			return err
		}
		return repo.MarkTerminalTx(tx, second.ID, errors.New("bad payload"), 3)
	}))

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		var err error
		fetched, err = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return err
	}))
	require.Empty(t, fetched)

	var terminal models.OutboxEvent
	require.NoError(t, conn.First(&terminal, "id = ?", second.ID).Error)
	require.Equal(t, 3, terminal.AttemptCount)
	require.NotNil(t, terminal.LastError)
	require.Equal(t, "bad payload", *terminal.LastError)
}

func TestRepositoryMarkFailedIncrementsAttempts(t *testing.T) {
	conn := sqlitetest.Open(t)
	repo := NewRepository(conn)
	event := seedEvent(t, conn, time.Now())

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.MarkFailedTx(conn, event.ID, errors.New("transient")))
	}

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "id = ?", event.ID).Error)
	require.Equal(t, 2, row.AttemptCount)
}

func TestRepositoryPurgePublishedInBatches(t *testing.T) {
	conn := sqlitetest.Open(t)
	repo := NewRepository(conn)
	var old []uuid.UUID
	for i := 0; i < 3; i++ {
		e := seedEvent(t, conn, time.Now())
		require.NoError(t, conn.Model(&models.OutboxEvent{}).
			Where("id = ?", e.ID).
			Update("published_at", time.Now().Add(-time.Duration(48+i)*time.Hour)).Error)
		old = append(old, e.ID)
	}
	pending := seedEvent(t, conn, time.Now())
	cutoff := time.Now().Add(-24 * time.Hour)

	deleted, err := repo.PurgePublished(context.Background(), cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	// the oldest two go first
	var left []models.OutboxEvent
	require.NoError(t, conn.Order("created_at").Find(&left).Error)
	require.Len(t, left, 2)
	ids := []uuid.UUID{left[0].ID, left[1].ID}
	require.Contains(t, ids, old[0])
	require.Contains(t, ids, pending.ID)

	deleted, err = repo.PurgePublished(context.Background(), cutoff, 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}

func seedEvent(t *testing.T, conn *gorm.DB, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	event := models.OutboxEvent{
		EventRecord: models.EventRecord{
			EventType:     enums.EventCheckoutConverted,
			AggregateType: enums.AggregatePaymentOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1,"eventId":"x","occurredAt":"2026-01-01T00:00:00Z","data":{}}`),
		},
		CreatedAt: createdAt,
	}
	require.NoError(t, conn.Create(&event).Error)
	return event
}

func TestServiceEmitValidatesEvent(t *testing.T) {
	conn := sqlitetest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	base := DomainEvent{
		EventType:     enums.EventOrderCanceled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	}

	unknownType := base
	unknownType.EventType = "order_teleported"
	noAggregate := base
	noAggregate.AggregateID = uuid.Nil
	badAggregate := base
	badAggregate.AggregateType = "cart"

	for _, ev := range []DomainEvent{unknownType, noAggregate, badAggregate} {
		require.Error(t, svc.Emit(context.Background(), conn, ev))
	}
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestServiceEmitStampsTypeAndTime(t *testing.T) {
	conn := sqlitetest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventSubscriptionDowngrade,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   uuid.New(),
		Version:       2,
	}))

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	require.Equal(t, 2, env.Version)
	require.Equal(t, enums.EventSubscriptionDowngrade, env.EventType)
	require.True(t, env.OccurredAt.Equal(svc.now()))
}

func TestClipKeepsRunesWhole(t *testing.T) {
	msg := strings.Repeat("a", maxLastErrorLen-1) + "é"
	got := clip(msg)
	require.True(t, utf8.ValidString(got))
	require.Len(t, got, maxLastErrorLen-1)
	require.Equal(t, "short", clip("short"))
}
