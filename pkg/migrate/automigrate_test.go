package migrate

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestAutoMigrateModelsCreatesTables(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	require.NoError(t, AutoMigrateModels(context.Background(), conn))
	for _, table := range []string{"carts", "cart_items", "orders", "payment_orders", "coupons", "seller_subscriptions", "outbox_events"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestAutoMigrateModelsRequiresConn(t *testing.T) {
	require.Error(t, AutoMigrateModels(context.Background(), nil))
}
