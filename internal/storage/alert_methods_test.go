package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldwatch/coldwatch-server/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStore{db: db}, mock
}

// An escalated alert must land in the level and value columns, not just
// in the message, or level filters and stats misclassify it.
func TestUpdateAlertPersistsLevelAndValue(t *testing.T) {
	store, mock := newMockStore(t)

	alert := &models.Alert{
		Level:   models.AlertCritical,
		Status:  models.AlertOpen,
		Message: "Freezer A temperature -5.0 above critical maximum -15.0",
		Value:   -5,
	}
	alert.ID = uuid.New()

	mock.ExpectExec(`UPDATE alerts\s+SET updated_at = \$2, level = \$3, status = \$4, message = \$5, value = \$6,\s+acknowledged_at = \$7, acknowledged_by = \$8, resolved_at = \$9, resolved_by = \$10\s+WHERE id = \$1`).
		WithArgs(alert.ID, sqlmock.AnyArg(), alert.Level, alert.Status, alert.Message, alert.Value,
			nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateAlert(context.Background(), alert))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAlertNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	alert := &models.Alert{Level: models.AlertWarning, Status: models.AlertResolved}
	alert.ID = uuid.New()
	now := time.Now()
	alert.ResolvedAt = &now

	mock.ExpectExec(`UPDATE alerts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateAlert(context.Background(), alert)
	assert.ErrorIs(t, err, ErrNotFound)
}
