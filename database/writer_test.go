package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataveil/dataveil/database"
)

func fetchEmail(t *testing.T, db database.Database, id int) string {
	t.Helper()
	var email string
	require.NoError(t, db.DB().QueryRow(`SELECT "Email" FROM "Customers" WHERE "Id" = ?`, id).Scan(&email))
	return email
}

func TestWriterCommitsSubBatches(t *testing.T) {
	db := openTestDatabase(t)
	seedCustomers(t, db, 10)

	w := &database.Writer{
		Session:      db.DB(),
		Dialect:      db.Dialect(),
		Table:        "Customers",
		KeyColumns:   []string{"Id"},
		SetColumns:   []string{"Email", "FirstName"},
		SQLBatchSize: 3,
		Timeout:      10 * time.Second,
	}

	updates := make([]database.Update, 10)
	for i := range updates {
		updates[i] = database.Update{
			Keys:   []any{i + 1},
			Values: []any{"masked@example.com", "Masked"},
		}
	}
	committed, failures := w.WriteBatch(context.Background(), updates)
	assert.Equal(t, 10, committed)
	assert.Empty(t, failures)

	assert.Equal(t, "masked@example.com", fetchEmail(t, db, 1))
	assert.Equal(t, "masked@example.com", fetchEmail(t, db, 10))
}

func TestWriterDryRunRollsBack(t *testing.T) {
	db := openTestDatabase(t)
	seedCustomers(t, db, 3)

	w := &database.Writer{
		Session:      db.DB(),
		Dialect:      db.Dialect(),
		Table:        "Customers",
		KeyColumns:   []string{"Id"},
		SetColumns:   []string{"Email"},
		SQLBatchSize: 100,
		DryRun:       true,
		Logger:       database.NullLogger{},
	}

	committed, failures := w.WriteBatch(context.Background(), []database.Update{
		{Keys: []any{1}, Values: []any{"masked@example.com"}},
		{Keys: []any{2}, Values: []any{"masked@example.com"}},
	})
	assert.Zero(t, committed)
	assert.Empty(t, failures)

	// statements ran but nothing committed
	assert.Equal(t, "user1@example.com", fetchEmail(t, db, 1))
	assert.Equal(t, "user2@example.com", fetchEmail(t, db, 2))
}

func TestWriterReportsFailedSubBatchAndContinues(t *testing.T) {
	db := openTestDatabase(t)
	seedCustomers(t, db, 4)

	w := &database.Writer{
		Session:      db.DB(),
		Dialect:      db.Dialect(),
		Table:        "Customers",
		KeyColumns:   []string{"Id"},
		SetColumns:   []string{"Email"},
		SQLBatchSize: 2,
	}

	// Id is the INTEGER PRIMARY KEY, so a string value fails the first
	// sub-batch while the second still commits
	committed, failures := w.WriteBatch(context.Background(), []database.Update{
		{Keys: []any{1}, Values: []any{"a@example.com"}},
		{Keys: []any{"not-an-id"}, Values: []any{make(chan int)}},
		{Keys: []any{3}, Values: []any{"c@example.com"}},
		{Keys: []any{4}, Values: []any{"d@example.com"}},
	})
	assert.Equal(t, 2, committed)
	require.Len(t, failures, 2)
	assert.Equal(t, 0, failures[0].Index)
	assert.Equal(t, 1, failures[1].Index)

	// first sub-batch rolled back as a unit
	assert.Equal(t, "user1@example.com", fetchEmail(t, db, 1))
	assert.Equal(t, "c@example.com", fetchEmail(t, db, 3))
	assert.Equal(t, "d@example.com", fetchEmail(t, db, 4))
}

func TestWriterRespectsTimeout(t *testing.T) {
	db := openTestDatabase(t)
	seedCustomers(t, db, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &database.Writer{
		Session:      db.DB(),
		Dialect:      db.Dialect(),
		Table:        "Customers",
		KeyColumns:   []string{"Id"},
		SetColumns:   []string{"Email"},
		SQLBatchSize: 10,
	}
	committed, failures := w.WriteBatch(ctx, []database.Update{
		{Keys: []any{1}, Values: []any{"masked@example.com"}},
	})
	assert.Zero(t, committed)
	assert.Len(t, failures, 1)
	assert.Equal(t, "user1@example.com", fetchEmail(t, db, 1))
}
