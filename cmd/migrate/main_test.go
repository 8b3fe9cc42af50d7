package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ordersvc/internal/storage/postgres"
)

type fakeMigrator struct {
	upSteps   []int
	downSteps []int
	applied   int
	upErr     error
	closed    bool
}

var fakeMigrations = []string{"init", "outbox"}

func (f *fakeMigrator) MigrateUp(_ context.Context, steps int) error {
	if f.upErr != nil {
		return f.upErr
	}
	f.upSteps = append(f.upSteps, steps)
	if steps == 0 || f.applied+steps > len(fakeMigrations) {
		f.applied = len(fakeMigrations)
	} else {
		f.applied += steps
	}
	return nil
}

func (f *fakeMigrator) MigrateDown(_ context.Context, steps int) error {
	f.downSteps = append(f.downSteps, steps)
	f.applied = max(f.applied-steps, 0)
	return nil
}

func (f *fakeMigrator) MigrationStatus(context.Context) (int64, int, error) {
	return int64(f.applied), f.applied, nil
}

func (f *fakeMigrator) Migrations(context.Context) ([]postgres.MigrationInfo, error) {
	result := make([]postgres.MigrationInfo, 0, len(fakeMigrations))
	for i, name := range fakeMigrations {
		info := postgres.MigrationInfo{Version: int64(i + 1), Name: name}
		if i < f.applied {
			info.Applied = true
			info.AppliedAt = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
		}
		result = append(result, info)
	}
	return result, nil
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func execute(t *testing.T, m *fakeMigrator, args ...string) (string, error) {
	t.Helper()

	var gotDSN string
	cmd := newRootCommand(func(_ context.Context, dsn string) (migrator, error) {
		gotDSN = dsn
		return m, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		require.NotEmpty(t, gotDSN)
	}
	return out.String(), err
}

func TestMigrate_UpDownStatus(t *testing.T) {
	m := &fakeMigrator{}

	out, err := execute(t, m, "up", "--dsn", "postgres://test")
	require.NoError(t, err)
	require.Contains(t, out, "migrate up ok: version=2 applied=2")
	require.Equal(t, []int{0}, m.upSteps)
	require.True(t, m.closed)

	out, err = execute(t, m, "down", "--dsn", "postgres://test")
	require.NoError(t, err)
	require.Contains(t, out, "migrate down ok: version=1 applied=1")
	require.Equal(t, []int{1}, m.downSteps)

	out, err = execute(t, m, "status", "--dsn", "postgres://test")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "0001")
	require.Contains(t, lines[1], "applied")
	require.Contains(t, lines[1], "2024-05-10T12:00:00Z")
	require.Contains(t, lines[2], "outbox")
	require.Contains(t, lines[2], "pending")
}

func TestMigrate_UpWithSteps(t *testing.T) {
	m := &fakeMigrator{}

	_, err := execute(t, m, "up", "--steps", "1", "--dsn", "postgres://test")
	require.NoError(t, err)
	require.Equal(t, []int{1}, m.upSteps)
	require.Equal(t, 1, m.applied)
}

func TestMigrate_DSNFromEnv(t *testing.T) {
	t.Setenv("ORDERSVC_POSTGRES_DSN", "postgres://from-env")

	_, err := execute(t, &fakeMigrator{}, "status")
	require.NoError(t, err)
}

func TestMigrate_MissingDSN(t *testing.T) {
	t.Setenv("ORDERSVC_POSTGRES_DSN", "")

	_, err := execute(t, &fakeMigrator{}, "status")
	require.ErrorContains(t, err, "is required")
}

func TestMigrate_UpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("lock timeout")}

	_, err := execute(t, m, "up", "--dsn", "postgres://test")
	require.ErrorContains(t, err, "lock timeout")
	require.True(t, m.closed)
}

func TestMigrate_OpenFailure(t *testing.T) {
	cmd := newRootCommand(func(context.Context, string) (migrator, error) {
		return nil, errors.New("connection refused")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"status", "--dsn", "postgres://test"})

	require.ErrorContains(t, cmd.Execute(), "connection refused")
}

func TestMigrate_Postgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("ORDERSVC_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	store, err := openPostgres(ctx, dsn)
	cancel()
	if err != nil {
		t.Skipf("postgres is not available: %v", err)
	}
	_ = store.Close()

	cmd := newRootCommand(openPostgres)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"up", "--dsn", dsn})
	require.NoError(t, cmd.Execute())

	out.Reset()
	cmd = newRootCommand(openPostgres)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status", "--dsn", dsn})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "applied")
}
