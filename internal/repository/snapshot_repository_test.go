package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSnapshotRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)
	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM students WHERE id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "assignment_type_id"}).AddRow("stu-1", "Awa Diop", "boarder"))
	mock.ExpectQuery(`FROM registrations r`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "academic_years_id", "class_id", "level_id", "status"}).
			AddRow("reg-1", "stu-1", "ay-2025", "cls-6a", "lvl-6", "ACTIVE"))
	mock.ExpectQuery(`FROM pricing WHERE academic_years_id = \$1`).
		WithArgs("ay-2025").
		WillReturnRows(sqlmock.NewRows([]string{"id", "fee_type", "amount", "assignment_type_id", "academic_years_id", "level_id"}).
			AddRow("pr-1", "tuition", "100000.00", "boarder", "ay-2025", "lvl-6"))
	mock.ExpectQuery(`FROM installments i`).
		WithArgs("ay-2025").
		WillReturnRows(sqlmock.NewRows([]string{"id", "pricing_id", "amount_due", "due_date", "status"}).
			AddRow("inst-1", "pr-1", []byte("50000.00"), due, "open"))
	mock.ExpectQuery(`FROM payments WHERE student_id = \$1`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "installment_id", "amount", "transaction_id", "cash_register_id", "cashier_id", "created_at"}).
			AddRow("pay-1", "stu-1", "inst-1", "20000.00", "tx-1", "reg-a", "cashier-1", due).
			AddRow("pay-2", "stu-1", "inst-1", "5000.50", "tx-2", "", "", due))
	mock.ExpectQuery(`FROM payment_method_payments pm`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"payment_id", "method_id", "amount"}).
			AddRow("pay-1", "cash", "15000.00").
			AddRow("pay-1", "mobile", "5000.00").
			AddRow("pay-2", "cash", "5000.50").
			AddRow("pay-x", "cash", "1.00"))
	mock.ExpectQuery(`FROM payment_methods ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("cash", "Cash").AddRow("mobile", "Mobile money"))

	snapshot, err := repo.Load(context.Background(), "stu-1", "ay-2025")
	require.NoError(t, err)
	assert.Equal(t, "boarder", snapshot.Student.AssignmentTypeID)
	require.Len(t, snapshot.Registrations, 1)
	assert.Equal(t, models.RegistrationStatusActive, snapshot.Registrations[0].Status)
	assert.Equal(t, "lvl-6", snapshot.Registrations[0].LevelID)
	assert.Equal(t, money.FromMajor(100000), snapshot.Pricing[0].Amount)
	assert.Equal(t, money.FromMajor(50000), snapshot.Installments[0].AmountDue)
	require.Len(t, snapshot.Payments, 2)
	assert.Len(t, snapshot.Payments[0].Methods, 2)
	assert.Equal(t, money.FromCents(500050), snapshot.Payments[1].Methods[0].Amount)
	assert.Len(t, snapshot.PaymentMethods, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryStudentMissing(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(`FROM students WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background(), "ghost", "ay-2025")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryPaymentsWithoutAllocationsSkipsMethodQuery(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSnapshotRepository(db)

	mock.ExpectQuery(`FROM payments WHERE student_id = \$1`).
		WithArgs("stu-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "installment_id", "amount", "transaction_id", "cash_register_id", "cashier_id", "created_at"}))

	payments, err := repo.ListPayments(context.Background(), "stu-2")
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
