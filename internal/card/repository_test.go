package card

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/testutil"
)

func newTestStore(t *testing.T) (*DBStore, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlxDB, mock := testutil.NewMockDB(t)
	return NewDBStore(sqlxDB), sqlxDB, mock
}

func cardRows(now time.Time) *sqlmock.Rows {
	next := now.AddDate(0, 0, 1)
	return sqlmock.NewRows(columns).
		AddRow("c1", "u1", "e1", "v1", "What is Goroutine?", "A lightweight thread", "flashcard", []byte(`[]`), []byte(`["Appears at 01:15 in the video"]`),
			"", "medium", []byte(`["go"]`), 1, 1, 0, 1, 2.18, now, next, true, 2, now, now).
		AddRow("c2", "u1", "e1", "v1", "Which of the following defines Goroutine?", "A lightweight thread", "multiple_choice",
			[]byte(`["A lightweight thread","None of the above"]`), []byte(`[]`),
			"", "easy", []byte(`[]`), 0, 0, 0, 0, 2.5, nil, nil, true, 1, now, now)
}

func TestDBStore_BatchCreate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cards := []Card{
		{ID: "c1", UserID: "u1", ExtractID: "e1", VideoID: "v1", Type: TypeFlashcard, EaseFactor: 2.5, IsActive: true, Version: 1, CreatedAt: now, UpdatedAt: now},
		{ID: "c2", UserID: "u1", ExtractID: "e1", VideoID: "v1", Type: TypeMultipleChoice, EaseFactor: 2.5, IsActive: true, Version: 1, CreatedAt: now, UpdatedAt: now},
	}

	tests := []struct {
		name      string
		cards     []Card
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name:      "no cards",
			setupMock: func(mock sqlmock.Sqlmock) {},
		},
		{
			name:  "inserts all rows in one statement",
			cards: cards,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(database.BuildMultiRowInsert("learning_cards", columns, 2))).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
		},
		{
			name:  "db error",
			cards: cards,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO learning_cards").WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, mock := newTestStore(t)
			tt.setupMock(mock)

			err := store.BatchCreate(context.Background(), tt.cards)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBStore_Get(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	getQuery := regexp.QuoteMeta("FROM learning_cards WHERE id = ?")

	t.Run("found", func(t *testing.T) {
		store, _, mock := newTestStore(t)
		mock.ExpectQuery(getQuery).WithArgs("c1").WillReturnRows(cardRows(now))

		got, err := store.Get(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)
		assert.Equal(t, TypeFlashcard, got.Type)
		assert.Equal(t, DifficultyMedium, got.Difficulty)
		assert.Equal(t, database.StringList{"Appears at 01:15 in the video"}, got.Hints)
		assert.Nil(t, got.Options)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, got.IsActive)
		require.NotNil(t, got.NextReviewAt)
		assert.Equal(t, now.AddDate(0, 0, 1), *got.NextReviewAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		store, _, mock := newTestStore(t)
		mock.ExpectQuery(getQuery).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDBStore_FindDue(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM learning_cards WHERE is_active = ? AND user_id = ? AND (next_review_at IS NULL OR next_review_at <= ?) " +
			"ORDER BY next_review_at IS NULL, next_review_at, review_count, created_at, id LIMIT 10",
	)).
		WithArgs(true, "u1", now).
		WillReturnRows(cardRows(now))

	got, err := store.FindDue(context.Background(), "u1", now, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Nil(t, got[1].NextReviewAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_FindNew(t *testing.T) {
	store, _, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM learning_cards WHERE is_active = ? AND review_count = ? AND user_id = ? ORDER BY created_at, id LIMIT 5",
	)).
		WithArgs(true, 0, "u1").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := store.FindNew(context.Background(), "u1", 5)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_FindByVideo(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store, _, mock := newTestStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM learning_cards WHERE video_id = ? ORDER BY created_at, id")).
		WithArgs("v1").
		WillReturnRows(cardRows(now))

	got, err := store.FindByVideo(context.Background(), "v1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReviewTx(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	next := now.AddDate(0, 0, 1)
	updateQuery := regexp.QuoteMeta(
		"UPDATE learning_cards SET review_count = ?, correct_count = ?, incorrect_count = ?, current_interval = ?, " +
			"ease_factor = ?, last_reviewed_at = ?, next_review_at = ?, updated_at = ?, version = version + 1 WHERE id = ? AND version = ?",
	)

	tests := []struct {
		name        string
		affected    int64
		wantVersion int64
		wantErr     error
	}{
		{name: "version matches", affected: 1, wantVersion: 4},
		{name: "version conflict", affected: 0, wantVersion: 3, wantErr: database.ErrVersionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, db, mock := newTestStore(t)
			c := &Card{
				ID: "c1", ReviewCount: 1, CorrectCount: 1, CurrentInterval: 1, EaseFactor: 2.18,
				LastReviewedAt: &now, NextReviewAt: &next, UpdatedAt: now, Version: 3,
			}

			mock.ExpectBegin()
			mock.ExpectExec(updateQuery).
				WithArgs(1, 1, 0, 1, 2.18, now, next, now, "c1", int64(3)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			if tt.wantErr != nil {
				mock.ExpectRollback()
			} else {
				mock.ExpectCommit()
			}

			err := database.RunInTx(context.Background(), db, func(ctx context.Context, tx *sqlx.Tx) error {
				return UpdateReviewTx(ctx, tx, c)
			})
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantVersion, c.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
