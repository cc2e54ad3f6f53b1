package scheduler_test

import (
	"context"
	"os"
	"testing"

	"cryptosim/src/config"
	"cryptosim/src/database"
	"cryptosim/src/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPoolStats(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := &config.Config{}
	cfg.Databases.SQL.ConnectionString = url
	cfg.Databases.SQL.MaxConns = 4
	pool, err := database.SetupDB(context.Background(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	logger, hook := test.NewNullLogger()
	scheduler.LogPoolStats(pool, logrus.NewEntry(logger))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "database pool stats", entry.Message)
	assert.Equal(t, int32(4), entry.Data["max_conns"])
}
