package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func openSQLite(t *testing.T) *Client {
	t.Helper()
	c, err := Open(context.Background(), config.DatabaseConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRebind(t *testing.T) {
	pg := Wrap(nil, DriverPostgres)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2), ($3, $4)", pg.Rebind("INSERT INTO t (a, b) VALUES (?, ?), (?, ?)"))

	lite := Wrap(nil, DriverSQLite)
	assert.Equal(t, "SELECT * FROM t WHERE a = ?", lite.Rebind("SELECT * FROM t WHERE a = ?"))
}

func TestInTxCommitsAndRollsBack(t *testing.T) {
	c := openSQLite(t)
	ctx := context.Background()
	_, err := c.DB.ExecContext(ctx, "CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	err = c.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO kv (k, v) VALUES ('a', '1')")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO kv (k, v) VALUES ('b', '2')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM kv").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestPing(t *testing.T) {
	c := openSQLite(t)
	assert.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, DriverSQLite, c.Driver())
}
