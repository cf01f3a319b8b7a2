package connector_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/autoid/connector"
	"github.com/ceyewan/autoid/testkit"
)

func TestRedisConnectorIntegration(t *testing.T) {
	cfg := testkit.NewRedisContainerConfig(t)
	ctx := testkit.NewContext(t, time.Minute)

	conn, err := connector.NewRedis(cfg, connector.WithLogger(testkit.NewLogger()), connector.WithMeter(testkit.NewMeter()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())
	require.NoError(t, conn.HealthCheck(ctx))

	key := "connector:" + testkit.NewID()
	client := conn.GetClient()
	require.NoError(t, client.Set(ctx, key, "v", 0).Err())
	val, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, conn.Close())
	assert.False(t, conn.IsHealthy())
}

func TestEtcdConnectorIntegration(t *testing.T) {
	cfg := testkit.NewEtcdContainerConfig(t)
	ctx := testkit.NewContext(t, time.Minute)

	conn, err := connector.NewEtcd(cfg, connector.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.HealthCheck(ctx))

	key := "/connector/" + testkit.NewID()
	client := conn.GetClient()
	_, err = client.Put(ctx, key, "v")
	require.NoError(t, err)
	resp, err := client.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, resp.Kvs, 1)
	assert.Equal(t, "v", string(resp.Kvs[0].Value))
}

func TestMySQLConnectorIntegration(t *testing.T) {
	conn := testkit.NewMySQLConnector(t)
	ctx := context.Background()

	require.NoError(t, conn.HealthCheck(ctx))
	var one int
	require.NoError(t, conn.GetClient().Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestSQLiteConnectorFromTestkit(t *testing.T) {
	db := testkit.NewSQLiteDB(t)
	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestPersistentSQLiteSurvivesReconnect(t *testing.T) {
	type row struct {
		ID   int64 `gorm:"primaryKey"`
		Name string
	}

	cfg := testkit.NewPersistentSQLiteConfig(t)
	first, err := connector.NewSQLite(cfg, connector.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	require.NoError(t, first.Connect(context.Background()))
	require.NoError(t, first.GetClient().AutoMigrate(&row{}))
	require.NoError(t, first.GetClient().Create(&row{ID: 1, Name: "a"}).Error)
	require.NoError(t, first.Close())

	reopened, err := connector.NewSQLite(cfg)
	require.NoError(t, err)
	require.NoError(t, reopened.Connect(context.Background()))
	defer reopened.Close()

	var got row
	require.NoError(t, reopened.GetClient().First(&got, 1).Error)
	assert.Equal(t, "a", got.Name)
}
