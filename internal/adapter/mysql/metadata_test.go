package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/guillermoBallester/indexlens/internal/adapter/mysql"
	"github.com/guillermoBallester/indexlens/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testSchema = []string{
	`CREATE TABLE orders (
		id          INT AUTO_INCREMENT PRIMARY KEY,
		customer_id INT NOT NULL,
		email       VARCHAR(255) NOT NULL,
		status      VARCHAR(16) NOT NULL,
		UNIQUE KEY uq_email (email),
		KEY idx_customer (customer_id),
		KEY status (status)
	)`,
	`INSERT INTO orders (customer_id, email, status)
	 WITH RECURSIVE seq (n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM seq WHERE n < 500)
	 SELECT n % 40, CONCAT('user', n, '@example.com'), ELT(1 + n % 3, 'new', 'paid', 'shipped') FROM seq`,
	`ANALYZE TABLE orders`,
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "test",
				"MYSQL_DATABASE":      "shop",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("mysql://root:test@%s:%s/shop", host, port.Port())
	db, err := mysql.Open(ctx, url, mysql.PoolOptions{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range testSchema {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return db
}

func TestMetadataProvider_Integration(t *testing.T) {
	db := setupTestDB(t)
	p := mysql.NewMetadataProvider(db)
	ctx := context.Background()

	schema, err := p.ResolveSchema(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "shop", schema)

	rows, err := p.IndexRows(ctx, schema, "orders")
	require.NoError(t, err)
	groups := domain.GroupIndexRows(rows)
	require.Len(t, groups, 4)
	assert.Equal(t, "PRIMARY", groups[0].Name)
	assert.True(t, domain.IsPrimaryIndex(groups[0], domain.DialectMySQL))

	stats, err := p.TableStats(ctx, schema, "orders")
	require.NoError(t, err)
	assert.Greater(t, stats.RowEstimate, int64(0))

	usage, err := p.IndexUsage(ctx, schema, "orders")
	require.NoError(t, err)
	assert.NotEmpty(t, usage)

	sizes, err := p.IndexSizes(ctx, schema, "orders")
	require.NoError(t, err)
	assert.NotEmpty(t, sizes)

	suggestions, err := p.Suggestions(ctx, schema, "orders")
	require.NoError(t, err)

	idx := domain.NewSuggestionIndex(suggestions, domain.DialectMySQL)
	_, ok := idx.ForIndex("status")
	assert.True(t, ok, "column suggestion reachable through the index named after it")
	s, ok := idx.ForColumns([]string{"status"})
	require.True(t, ok)
	assert.Contains(t, s.Reason, "Low selectivity")

	_, err = p.TableStats(ctx, schema, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
