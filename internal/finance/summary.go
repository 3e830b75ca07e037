package finance

import (
	"sort"
	"time"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

// InstallmentDetail is the per-installment balance of a student.
type InstallmentDetail struct {
	InstallmentID   string      `json:"installment_id"`
	PricingID       string      `json:"pricing_id"`
	FeeType         string      `json:"fee_type"`
	DueDate         time.Time   `json:"due_date"`
	Status          string      `json:"status"`
	AmountDue       money.Money `json:"amount_due"`
	AmountPaid      money.Money `json:"amount_paid"`
	RemainingAmount money.Money `json:"remaining_amount"`
	IsOverdue       bool        `json:"is_overdue"`
}

// FinancialSummary is the student's balance for one academic year.
type FinancialSummary struct {
	StudentID      string              `json:"student_id"`
	AcademicYearID string              `json:"academic_year_id"`
	RegistrationID string              `json:"registration_id"`
	Pricing        []models.Pricing    `json:"pricing"`
	Installments   []InstallmentDetail `json:"installments"`
	TotalDue       money.Money         `json:"total_due"`
	TotalPaid      money.Money         `json:"total_paid"`
	TotalRemaining money.Money         `json:"total_remaining"`
	OverdueAmount  money.Money         `json:"overdue_amount"`
}

// Installment returns the detail for id.
func (s *FinancialSummary) Installment(id string) (InstallmentDetail, bool) {
	if s == nil {
		return InstallmentDetail{}, false
	}
	for _, d := range s.Installments {
		if d.InstallmentID == id {
			return d, true
		}
	}
	return InstallmentDetail{}, false
}

// PricingByID returns the applicable pricing line for id.
func (s *FinancialSummary) PricingByID(id string) (models.Pricing, bool) {
	if s == nil {
		return models.Pricing{}, false
	}
	return findPricing(s.Pricing, id)
}

// FindActiveRegistration returns the student's active registration for the academic year.
func FindActiveRegistration(registrations []models.Registration, studentID, academicYearID string) *models.Registration {
	for i := range registrations {
		r := registrations[i]
		if r.StudentID != studentID || r.AcademicYearID != academicYearID {
			continue
		}
		if r.Status != "" && r.Status != models.RegistrationStatusActive {
			continue
		}
		return &r
	}
	return nil
}

// ApplicablePricing filters the catalogue down to the lines that bind the student.
func ApplicablePricing(student models.Student, registration models.Registration, academicYearID string, catalog []models.Pricing) []models.Pricing {
	out := make([]models.Pricing, 0)
	for _, p := range catalog {
		if p.AssignmentTypeID == student.AssignmentTypeID &&
			p.AcademicYearID == academicYearID &&
			p.LevelID == registration.LevelID {
			out = append(out, p)
		}
	}
	return out
}

// BuildSummary derives the financial summary from the snapshot collections.
// It returns nil when the registration is missing or belongs to another student or year.
func BuildSummary(student models.Student, registration *models.Registration, academicYearID string, pricing []models.Pricing, installments []models.Installment, payments []models.Payment, now time.Time) *FinancialSummary {
	if registration == nil || registration.StudentID != student.ID || registration.AcademicYearID != academicYearID {
		return nil
	}
	if registration.Status != "" && registration.Status != models.RegistrationStatusActive {
		return nil
	}

	applicable := ApplicablePricing(student, *registration, academicYearID, pricing)
	summary := &FinancialSummary{
		StudentID:      student.ID,
		AcademicYearID: academicYearID,
		RegistrationID: registration.ID,
		Pricing:        applicable,
		Installments:   make([]InstallmentDetail, 0),
	}

	paidByInstallment := make(map[string]money.Money)
	for _, p := range payments {
		// both keys must match so a payment can never leak across students
		if p.StudentID != student.ID {
			continue
		}
		paidByInstallment[p.InstallmentID] += p.Amount
	}

	for _, pr := range applicable {
		owned := installmentsOf(installments, pr.ID)
		for _, inst := range owned {
			paid := paidByInstallment[inst.ID]
			remaining := money.Max(0, inst.AmountDue.Sub(paid))
			overdue := inst.DueDate.Before(now) && remaining.IsPositive()

			summary.Installments = append(summary.Installments, InstallmentDetail{
				InstallmentID:   inst.ID,
				PricingID:       pr.ID,
				FeeType:         pr.FeeType,
				DueDate:         inst.DueDate,
				Status:          inst.Status,
				AmountDue:       inst.AmountDue,
				AmountPaid:      paid,
				RemainingAmount: remaining,
				IsOverdue:       overdue,
			})

			summary.TotalDue += inst.AmountDue
			summary.TotalPaid += paid
			summary.TotalRemaining += remaining
			if overdue {
				summary.OverdueAmount += remaining
			}
		}
	}
	return summary
}

// BuildSummaryFromSnapshot resolves the registration from the snapshot and builds the summary.
func BuildSummaryFromSnapshot(snapshot models.FinanceSnapshot, academicYearID string, now time.Time) *FinancialSummary {
	registration := FindActiveRegistration(snapshot.Registrations, snapshot.Student.ID, academicYearID)
	return BuildSummary(snapshot.Student, registration, academicYearID, snapshot.Pricing, snapshot.Installments, snapshot.Payments, now)
}

func installmentsOf(all []models.Installment, pricingID string) []models.Installment {
	owned := make([]models.Installment, 0)
	for _, inst := range all {
		if inst.PricingID == pricingID {
			owned = append(owned, inst)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].DueDate.Equal(owned[j].DueDate) {
			return owned[i].ID < owned[j].ID
		}
		return owned[i].DueDate.Before(owned[j].DueDate)
	})
	return owned
}
