package finance

import (
	"time"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/money"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type financeFixture struct {
	student      models.Student
	registration models.Registration
	pricing      []models.Pricing
	installments []models.Installment
	payments     []models.Payment
}

func newFixture() financeFixture {
	return financeFixture{
		student:      models.Student{ID: "stu-1", FullName: "Awa Diallo", AssignmentTypeID: "boarder"},
		registration: models.Registration{ID: "reg-1", StudentID: "stu-1", AcademicYearID: "ay-2025", ClassID: "class-6a", LevelID: "lvl-6", Status: models.RegistrationStatusActive},
		pricing: []models.Pricing{
			{ID: "pr-tuition", FeeType: "tuition", Amount: money.FromMajor(100000), AssignmentTypeID: "boarder", AcademicYearID: "ay-2025", LevelID: "lvl-6"},
			{ID: "pr-registration", FeeType: "registration", Amount: money.FromMajor(20000), AssignmentTypeID: "boarder", AcademicYearID: "ay-2025", LevelID: "lvl-6"},
			{ID: "pr-day", FeeType: "tuition", Amount: money.FromMajor(60000), AssignmentTypeID: "day", AcademicYearID: "ay-2025", LevelID: "lvl-6"},
			{ID: "pr-old", FeeType: "tuition", Amount: money.FromMajor(90000), AssignmentTypeID: "boarder", AcademicYearID: "ay-2024", LevelID: "lvl-6"},
		},
		installments: []models.Installment{
			{ID: "inst-t2", PricingID: "pr-tuition", AmountDue: money.FromMajor(50000), DueDate: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)},
			{ID: "inst-t1", PricingID: "pr-tuition", AmountDue: money.FromMajor(50000), DueDate: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
			{ID: "inst-r1", PricingID: "pr-registration", AmountDue: money.FromMajor(20000), DueDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "inst-day", PricingID: "pr-day", AmountDue: money.FromMajor(60000), DueDate: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		},
		payments: []models.Payment{
			{ID: "pay-1", StudentID: "stu-1", InstallmentID: "inst-t1", Amount: money.FromMajor(20000)},
			{ID: "pay-2", StudentID: "stu-1", InstallmentID: "inst-r1", Amount: money.FromMajor(20000)},
			{ID: "pay-3", StudentID: "stu-2", InstallmentID: "inst-t1", Amount: money.FromMajor(30000)},
		},
	}
}

func (f financeFixture) summary() *FinancialSummary {
	return BuildSummary(f.student, &f.registration, "ay-2025", f.pricing, f.installments, f.payments, fixedNow)
}

// singleInstallmentSummary is the 100000 tuition / one installment case.
func singleInstallmentSummary() *FinancialSummary {
	student := models.Student{ID: "stu-9", AssignmentTypeID: "day"}
	reg := models.Registration{ID: "reg-9", StudentID: "stu-9", AcademicYearID: "ay-2025", LevelID: "lvl-1", Status: models.RegistrationStatusActive}
	pricing := []models.Pricing{{ID: "pr-1", FeeType: "tuition", Amount: money.FromMajor(100000), AssignmentTypeID: "day", AcademicYearID: "ay-2025", LevelID: "lvl-1"}}
	installments := []models.Installment{{ID: "inst-1", PricingID: "pr-1", AmountDue: money.FromMajor(100000), DueDate: fixedNow.AddDate(0, 1, 0)}}
	return BuildSummary(student, &reg, "ay-2025", pricing, installments, nil, fixedNow)
}
