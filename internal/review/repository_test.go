package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/lectio/internal/card"
	"github.com/at-ishikawa/lectio/internal/database"
	"github.com/at-ishikawa/lectio/internal/testutil"
	"github.com/at-ishikawa/lectio/internal/scheduler"
)

var sessionColumnNames = []string{
	"id", "user_id", "status", "started_at", "completed_at", "duration_seconds", "cards_reviewed",
	"correct_answers", "incorrect_answers", "accuracy", "average_response_time_ms", "learning_velocity", "version",
}

func newTestStore(t *testing.T) (*DBStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := testutil.NewMockDB(t)
	return NewDBStore(db), mock
}

func TestDBStore_CreateSession(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store, mock := newTestStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_sessions (" + sessionColumns + ")")).
		WithArgs("s1", "u1", StatusActive, now, nil, 0, 0, 0, 0, 0.0, nil, nil, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateSession(context.Background(), &Session{ID: "s1", UserID: "u1", Status: StatusActive, StartedAt: now, Version: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_GetSession(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	selectSession := regexp.QuoteMeta("FROM review_sessions WHERE id = ?")

	t.Run("with results", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(selectSession).WithArgs("s1").WillReturnRows(
			sqlmock.NewRows(sessionColumnNames).AddRow("s1", "u1", "active", now, nil, 0, 2, 1, 1, 50.0, nil, nil, 3),
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM review_results WHERE session_id = ? ORDER BY id")).WithArgs("s1").WillReturnRows(
			sqlmock.NewRows([]string{"id", "session_id", "card_id", "quality", "response_time_ms", "reviewed_at"}).
				AddRow(1, "s1", "c1", 2, 1200, now).
				AddRow(2, "s1", "c2", 0, 4000, now),
		)

		got, err := store.GetSession(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)
		assert.Equal(t, int64(3), got.Version)
		assert.Nil(t, got.CompletedAt)
		require.Len(t, got.Results, 2)
		assert.Equal(t, scheduler.QualityGood, got.Results[0].Quality)
		assert.Equal(t, scheduler.QualityAgain, got.Results[1].Quality)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newTestStore(t)
		mock.ExpectQuery(selectSession).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := store.GetSession(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDBStore_UpdateSession(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updateQuery := regexp.QuoteMeta("UPDATE review_sessions SET status = ?")

	tests := []struct {
		name        string
		affected    int64
		wantVersion int64
		wantErr     error
	}{
		{name: "version matches", affected: 1, wantVersion: 3},
		{name: "stale version", affected: 0, wantVersion: 2, wantErr: database.ErrVersionConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			s := &Session{ID: "s1", UserID: "u1", Status: StatusPaused, StartedAt: now, Version: 2}

			mock.ExpectBegin()
			mock.ExpectExec(updateQuery).
				WithArgs(StatusPaused, nil, 0, 0, 0, 0, 0.0, nil, nil, "s1", int64(2)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			if tt.wantErr != nil {
				mock.ExpectRollback()
			} else {
				mock.ExpectCommit()
			}

			err := store.UpdateSession(context.Background(), s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantVersion, s.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBStore_CommitReview(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	next := now.AddDate(0, 0, 1)
	updateCard := regexp.QuoteMeta("UPDATE learning_cards SET")
	updateSession := regexp.QuoteMeta("UPDATE review_sessions SET")
	insertResult := regexp.QuoteMeta("INSERT INTO review_results (session_id, card_id, quality, response_time_ms, reviewed_at)")
	updateExtract := regexp.QuoteMeta("UPDATE knowledge_extracts SET review_count = review_count + 1")

	tests := []struct {
		name            string
		setupMock       func(mock sqlmock.Sqlmock)
		wantErr         error
		wantCardVersion int64
		wantSessVersion int64
		wantResultID    int64
	}{
		{
			name: "commits card, session, result and extract",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(updateCard).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(updateSession).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(insertResult).
					WithArgs("s1", "c1", scheduler.QualityGood, int64(1500), now).
					WillReturnResult(sqlmock.NewResult(7, 1))
				mock.ExpectExec(updateExtract).
					WithArgs(now, next, "e1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			wantCardVersion: 2,
			wantSessVersion: 4,
			wantResultID:    7,
		},
		{
			name: "session conflict rolls back and keeps versions",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(updateCard).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(updateSession).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr:         database.ErrVersionConflict,
			wantCardVersion: 1,
			wantSessVersion: 3,
		},
		{
			name: "result insert failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(updateCard).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(updateSession).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(insertResult).WillReturnError(fmt.Errorf("deadlock"))
				mock.ExpectRollback()
			},
			wantErr:         errors.New("deadlock"),
			wantCardVersion: 1,
			wantSessVersion: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newTestStore(t)
			tt.setupMock(mock)

			c := &card.Card{ID: "c1", UserID: "u1", ExtractID: "e1", ReviewCount: 1, CorrectCount: 1, CurrentInterval: 1,
				EaseFactor: 2.18, LastReviewedAt: &now, NextReviewAt: &next, IsActive: true, Version: 1}
			s := &Session{ID: "s1", UserID: "u1", Status: StatusActive, StartedAt: now, CardsReviewed: 1, CorrectAnswers: 1, Accuracy: 100, Version: 3}
			result := &Result{SessionID: "s1", CardID: "c1", Quality: scheduler.QualityGood, ResponseTimeMs: 1500, ReviewedAt: now}

			err := store.CommitReview(context.Background(), c, s, result)
			switch {
			case errors.Is(tt.wantErr, database.ErrVersionConflict):
				assert.ErrorIs(t, err, database.ErrVersionConflict)
			case tt.wantErr != nil:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantResultID, result.ID)
			}
			assert.Equal(t, tt.wantCardVersion, c.Version)
			assert.Equal(t, tt.wantSessVersion, s.Version)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
