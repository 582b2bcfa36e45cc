package storage

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The dependents guard lives inside the DELETE statement, so a site
// created between a separate check and the delete cannot slip past it.
func TestDeleteTenantGuardIsAtomic(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM tenants\s+WHERE id = \$1\s+AND NOT EXISTS \(SELECT 1 FROM sites WHERE tenant_id = \$1\)`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteTenant(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTenantWithSites(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM tenants`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tenants WHERE id = \$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := store.DeleteTenant(context.Background(), id)
	assert.ErrorIs(t, err, ErrHasDependents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTenantMissing(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM tenants`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := store.DeleteTenant(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}
