//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arexans/lisensi/internal/models"
)

var testDB *DB

func TestMain(m *testing.M) {
	if !dockerAvailable() {
		fmt.Println("Docker is not available, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("lisensi_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.New(zerolog.NewConsoleWriter())
	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	testDB, err = New(ctx, cfg, logger)
	if err != nil {
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := testDB.Migrate(ctx); err != nil {
		testDB.Close()
		pgContainer.Terminate(ctx)
		log.Fatalf("failed to run migrations: %v", err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)

	os.Exit(code)
}

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB returns the shared test database after cleaning mutable tables.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	_, err := testDB.Pool.Exec(context.Background(), "TRUNCATE TABLE transactions")
	require.NoError(t, err)
	return testDB
}

// createTestTransaction persists a pending transaction.
func createTestTransaction(t *testing.T, db *DB, providerID string) *models.Transaction {
	t.Helper()
	tx := models.NewTransaction(providerID, "budi", "08123456789", "VIP", 7)
	tx.OriginalAmount = 21000
	tx.TotalAmount = 21007
	tx.UniqueNominal = 7
	tx.QRString = "00020101...6304ABCD"
	require.NoError(t, db.CreateTransaction(context.Background(), tx))
	return tx
}

func TestCreateAndGetTransaction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := createTestTransaction(t, db, "TX-1")

	got, err := db.GetTransactionByProviderID(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "budi", got.CustomerName)
	assert.Equal(t, models.TransactionStatusPending, got.Status)
	assert.Equal(t, int64(21007), got.TotalAmount)
	assert.Nil(t, got.LicenseKey)
	assert.WithinDuration(t, created.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestGetTransactionNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetTransactionByProviderID(context.Background(), "TX-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkTransactionPaid(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestTransaction(t, db, "TX-1")

	transitioned, err := db.MarkTransactionPaid(ctx, "TX-1", "budi", time.Now())
	require.NoError(t, err)
	assert.True(t, transitioned)

	got, err := db.GetTransactionByProviderID(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPaid, got.Status)
	require.NotNil(t, got.LicenseKey)
	assert.Equal(t, "budi", *got.LicenseKey)
	require.NotNil(t, got.PaidAt)

	// Second attempt finds no pending row.
	transitioned, err = db.MarkTransactionPaid(ctx, "TX-1", "budi", time.Now())
	require.NoError(t, err)
	assert.False(t, transitioned)
}

func TestMarkTransactionPaidConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestTransaction(t, db, "TX-1")

	const attempts = 8
	wins := make([]bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := db.MarkTransactionPaid(ctx, "TX-1", "budi", time.Now())
			assert.NoError(t, err)
			wins[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range wins {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestMarkTransactionStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createTestTransaction(t, db, "TX-1")

	transitioned, err := db.MarkTransactionStatus(ctx, "TX-1", models.TransactionStatusCancelled, time.Now())
	require.NoError(t, err)
	assert.True(t, transitioned)

	got, err := db.GetTransactionByProviderID(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	// Terminal rows do not transition again.
	transitioned, err = db.MarkTransactionStatus(ctx, "TX-1", models.TransactionStatusExpired, time.Now())
	require.NoError(t, err)
	assert.False(t, transitioned)

	_, err = db.MarkTransactionStatus(ctx, "TX-1", models.TransactionStatusPending, time.Now())
	assert.Error(t, err)
}

func TestExpireOverdueTransactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	overdue := createTestTransaction(t, db, "TX-old")
	_, err := db.Pool.Exec(ctx,
		"UPDATE transactions SET expires_at = NOW() - INTERVAL '1 minute' WHERE transaction_id = $1",
		overdue.ProviderID)
	require.NoError(t, err)

	createTestTransaction(t, db, "TX-fresh")

	paid := createTestTransaction(t, db, "TX-paid")
	_, err = db.Pool.Exec(ctx,
		"UPDATE transactions SET expires_at = NOW() - INTERVAL '1 minute' WHERE transaction_id = $1",
		paid.ProviderID)
	require.NoError(t, err)
	_, err = db.MarkTransactionPaid(ctx, "TX-paid", "budi", time.Now())
	require.NoError(t, err)

	n, err := db.ExpireOverdueTransactions(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := db.GetTransactionByProviderID(ctx, "TX-old")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusExpired, got.Status)

	got, err = db.GetTransactionByProviderID(ctx, "TX-paid")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPaid, got.Status)
}

func TestListTransactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		createTestTransaction(t, db, fmt.Sprintf("TX-%d", i))
		time.Sleep(10 * time.Millisecond)
	}

	txs, err := db.ListTransactions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TX-2", txs[0].ProviderID)
}

func TestCountTransactionsByStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestTransaction(t, db, "TX-1")
	createTestTransaction(t, db, "TX-2")
	_, err := db.MarkTransactionPaid(ctx, "TX-2", "budi", time.Now())
	require.NoError(t, err)

	counts, err := db.CountTransactionsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.TransactionStatusPending])
	assert.Equal(t, int64(1), counts[models.TransactionStatusPaid])
}

func TestPackagesSeeded(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	pkgs, err := db.ListActivePackages(ctx)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "NORMAL", pkgs[0].Name)
	assert.Equal(t, int64(2000), pkgs[0].PricePerDay)
	assert.Equal(t, "VIP", pkgs[1].Name)
	assert.Equal(t, int64(3000), pkgs[1].PricePerDay)

	vip, err := db.GetPackageByName(ctx, "VIP")
	require.NoError(t, err)
	assert.True(t, vip.IsActive)
	assert.NotEmpty(t, vip.Features)

	_, err = db.GetPackageByName(ctx, "GOLD")
	assert.ErrorIs(t, err, ErrNotFound)
}
