//go:build integration

package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quizify/internal/db"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) (addr string, terminate func()) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	addr = fmt.Sprintf("redis://%s:%s", host, port.Port())
	t.Logf("Redis running at %s", addr)
	terminate = func() {
		require.NoError(t, redisC.Terminate(ctx))
	}
	return addr, terminate
}

func startPostgres(ctx context.Context, t *testing.T) (dsn string, terminate func()) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "quizify",
			"POSTGRES_PASSWORD": "quizify",
			"POSTGRES_DB":       "quizify",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn = fmt.Sprintf("postgres://quizify:quizify@%s:%s/quizify?sslmode=disable", host, port.Port())
	terminate = func() {
		require.NoError(t, pgC.Terminate(ctx))
	}
	return dsn, terminate
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	addr, terminate := startRedis(ctx, t)
	defer terminate()

	store, err := NewRedisStore(ctx, addr, time.Hour)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	s := newSession(t)
	require.NoError(t, store.Save(ctx, s))
	ttl, err := store.rdb.TTL(ctx, quizStateKey(s.ID)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 59*time.Minute)
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	dsn, terminate := startPostgres(ctx, t)
	defer terminate()

	database, err := db.NewDB(ctx, dsn)
	require.NoError(t, err)
	defer database.Close()

	exerciseStore(t, NewPostgresStore(database.Queries, time.Hour))

	expired := NewPostgresStore(database.Queries, time.Millisecond)
	s := newSession(t)
	require.NoError(t, expired.Save(ctx, s))
	time.Sleep(10 * time.Millisecond)
	_, err = expired.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)

	n, err := database.Queries.DeleteExpiredQuizSessions(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
