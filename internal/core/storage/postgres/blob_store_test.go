package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobmux/internal/core/storage/types"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, types.BackingStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewBlobStore(db)
}

func testValue() types.BlobValue {
	return types.BlobValue{
		Content:   []byte("payload"),
		Checksum:  types.ChecksumOf([]byte("payload")),
		CreatedAt: time.Now().UTC(),
	}
}

func TestBlobStoreGet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the stored value", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()
		value := testValue()

		mock.ExpectQuery(`SELECT content, checksum, created_at FROM blobs WHERE blob_key = \$1`).
			WithArgs("k1").
			WillReturnRows(sqlmock.NewRows([]string{"content", "checksum", "created_at"}).
				AddRow(value.Content, value.Checksum, value.CreatedAt))

		got, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, value.Checksum, got.Checksum)
		assert.Equal(t, value.Content, got.Content)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row means definitive absence", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT content, checksum, created_at FROM blobs`).
			WithArgs("k1").
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(ctx, "k1")
		assert.ErrorIs(t, err, types.ErrBlobNotFound)
	})

	t.Run("query failures pass through", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT content, checksum, created_at FROM blobs`).
			WillReturnError(errors.New("connection reset"))

		_, err := store.Get(ctx, "k1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrBlobNotFound)
	})
}

func TestBlobStorePut(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a new key", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()
		value := testValue()

		mock.ExpectExec(`INSERT INTO blobs`).
			WithArgs("k1", value.Content, value.Checksum, value.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Put(ctx, "k1", value))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("identical content already present is a no-op", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()
		value := testValue()

		mock.ExpectExec(`INSERT INTO blobs`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT checksum FROM blobs WHERE blob_key = \$1`).
			WithArgs("k1").
			WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow(value.Checksum))

		assert.NoError(t, store.Put(ctx, "k1", value))
	})

	t.Run("conflicting content fails", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO blobs`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT checksum FROM blobs`).
			WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow("someone-elses-checksum"))

		assert.Error(t, store.Put(ctx, "k1", testValue()))
	})
}

func TestBlobStorePutExplicit(t *testing.T) {
	ctx := context.Background()

	t.Run("writes a missing key", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()
		value := testValue()

		mock.ExpectQuery(`SELECT checksum FROM blobs`).
			WithArgs("k1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO blobs`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		status, err := store.PutExplicit(ctx, "k1", value, types.OverwriteIfMissing)
		require.NoError(t, err)
		assert.Equal(t, types.StatusWritten, status)
	})

	t.Run("identical content short circuits", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()
		value := testValue()

		mock.ExpectQuery(`SELECT checksum FROM blobs`).
			WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow(value.Checksum))

		status, err := store.PutExplicit(ctx, "k1", value, types.OverwriteAlways)
		require.NoError(t, err)
		assert.Equal(t, types.StatusIdentical, status)
	})

	t.Run("if-missing skips conflicting content", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT checksum FROM blobs`).
			WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow("other"))

		status, err := store.PutExplicit(ctx, "k1", testValue(), types.OverwriteIfMissing)
		require.NoError(t, err)
		assert.Equal(t, types.StatusSkipped, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("always replaces conflicting content", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT checksum FROM blobs`).
			WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow("other"))
		mock.ExpectExec(`INSERT INTO blobs .* ON CONFLICT \(blob_key\) DO UPDATE`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		status, err := store.PutExplicit(ctx, "k1", testValue(), types.OverwriteAlways)
		require.NoError(t, err)
		assert.Equal(t, types.StatusReplaced, status)
	})
}

func TestBlobStoreContains(t *testing.T) {
	ctx := context.Background()

	t.Run("present", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("k1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := store.Contains(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("absent", func(t *testing.T) {
		db, mock, store := setupMock(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		ok, err := store.Contains(ctx, "k1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
