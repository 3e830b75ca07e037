package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-finance-api/internal/models"
)

// SnapshotRepository loads the read-only finance state of one student.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs a SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

type paymentMethodRow struct {
	PaymentID string `db:"payment_id"`
	models.PaymentMethodAllocation
}

// FindStudent returns the student or sql.ErrNoRows.
func (r *SnapshotRepository) FindStudent(ctx context.Context, studentID string) (*models.Student, error) {
	const query = `SELECT id, full_name, COALESCE(assignment_type_id, '') AS assignment_type_id FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, studentID); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListRegistrations returns every registration of the student with the level resolved through the class.
func (r *SnapshotRepository) ListRegistrations(ctx context.Context, studentID string) ([]models.Registration, error) {
	const query = `SELECT r.id, r.student_id, r.academic_years_id, r.class_id, COALESCE(c.level_id, '') AS level_id, r.status
        FROM registrations r
        LEFT JOIN classes c ON c.id = r.class_id
        WHERE r.student_id = $1
        ORDER BY r.academic_years_id`
	registrations := make([]models.Registration, 0)
	if err := r.db.SelectContext(ctx, &registrations, query, studentID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// ListPricing returns the pricing catalogue of an academic year.
func (r *SnapshotRepository) ListPricing(ctx context.Context, academicYearID string) ([]models.Pricing, error) {
	const query = `SELECT id, fee_type, amount, assignment_type_id, academic_years_id, level_id
        FROM pricing WHERE academic_years_id = $1 ORDER BY fee_type, id`
	pricing := make([]models.Pricing, 0)
	if err := r.db.SelectContext(ctx, &pricing, query, academicYearID); err != nil {
		return nil, fmt.Errorf("list pricing: %w", err)
	}
	return pricing, nil
}

// ListInstallments returns installments of every pricing line of an academic year.
func (r *SnapshotRepository) ListInstallments(ctx context.Context, academicYearID string) ([]models.Installment, error) {
	const query = `SELECT i.id, i.pricing_id, i.amount_due, i.due_date, i.status
        FROM installments i
        JOIN pricing p ON p.id = i.pricing_id
        WHERE p.academic_years_id = $1
        ORDER BY i.due_date, i.id`
	installments := make([]models.Installment, 0)
	if err := r.db.SelectContext(ctx, &installments, query, academicYearID); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return installments, nil
}

// ListPayments returns the committed payments of a student with their method split.
func (r *SnapshotRepository) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	const query = `SELECT id, student_id, installment_id, amount, COALESCE(transaction_id, '') AS transaction_id,
        COALESCE(cash_register_id, '') AS cash_register_id, COALESCE(cashier_id, '') AS cashier_id, created_at
        FROM payments WHERE student_id = $1 ORDER BY created_at, id`
	payments := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	if len(payments) == 0 {
		return payments, nil
	}

	const methodQuery = `SELECT pm.payment_id, pm.method_id, pm.amount
        FROM payment_method_payments pm
        JOIN payments p ON p.id = pm.payment_id
        WHERE p.student_id = $1
        ORDER BY pm.payment_id, pm.method_id`
	var rows []paymentMethodRow
	if err := r.db.SelectContext(ctx, &rows, methodQuery, studentID); err != nil {
		return nil, fmt.Errorf("list payment method allocations: %w", err)
	}

	index := make(map[string]int, len(payments))
	for i, p := range payments {
		index[p.ID] = i
	}
	for _, row := range rows {
		if i, ok := index[row.PaymentID]; ok {
			payments[i].Methods = append(payments[i].Methods, row.PaymentMethodAllocation)
		}
	}
	return payments, nil
}

// ListPaymentMethods returns the payment method catalogue.
func (r *SnapshotRepository) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	const query = `SELECT id, name FROM payment_methods ORDER BY name`
	methods := make([]models.PaymentMethod, 0)
	if err := r.db.SelectContext(ctx, &methods, query); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// Load assembles the finance snapshot for a student and academic year.
func (r *SnapshotRepository) Load(ctx context.Context, studentID, academicYearID string) (*models.FinanceSnapshot, error) {
	student, err := r.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	registrations, err := r.ListRegistrations(ctx, studentID)
	if err != nil {
		return nil, err
	}
	pricing, err := r.ListPricing(ctx, academicYearID)
	if err != nil {
		return nil, err
	}
	installments, err := r.ListInstallments(ctx, academicYearID)
	if err != nil {
		return nil, err
	}
	payments, err := r.ListPayments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	methods, err := r.ListPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}

	return &models.FinanceSnapshot{
		Student:        *student,
		Registrations:  registrations,
		Pricing:        pricing,
		Installments:   installments,
		Payments:       payments,
		PaymentMethods: methods,
	}, nil
}
