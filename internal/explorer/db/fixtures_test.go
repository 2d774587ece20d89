package db

import (
	"context"
	"testing"
	"time"

	dbmodels "github.com/gartstein/visaexplorer/internal/explorer/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB initializes an in-memory SQLite copy of the dataset schema.
func SetupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection to :memory: would be a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := newRepository(db)
	require.NoError(t, repo.Migrate(context.Background()), "failed to migrate test database")
	return repo
}

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// seedDataset loads a small dataset:
//
//	E1 Acme Corp   Austin TX  computer industry  3 cases  rate 0.50  avg 102140
//	E2 Acme Labs   Boston MA  pharma             1 case   rate 1.00  avg 100000
//	E3 Beta Bank   Austin TX  banking            2 cases  rate 0.25  avg 108000
//	E4 Gamma Co    Denver CO  banking            no cases, no decisions
//	E5 No Stats    Austin TX  banking            1 case, no FilingStats row
//	E6 Delta LLC   "Austin "  unknown industry   no cases
//	E7 Unplaced    no city or state
func seedDataset(t *testing.T, repo *Repository) {
	t.Helper()
	db := repo.db

	require.NoError(t, db.Create([]dbmodels.Industry{
		{NAICSCode: "5415", Name: "Computer Systems Design Services"},
		{NAICSCode: "3254", Name: "Pharmaceutical Manufacturing"},
		{NAICSCode: "5221", Name: "Depository Credit Banking"},
	}).Error)

	require.NoError(t, db.Create([]dbmodels.JobClass{
		{SOCCode: "15-1252", SOCTitle: "Software Developers"},
		{SOCCode: "13-2011", SOCTitle: "Accountants and Auditors"},
		{SOCCode: "19-1042", SOCTitle: "Medical Scientists"},
	}).Error)

	require.NoError(t, db.Create([]dbmodels.Employer{
		{ID: "E1", Name: "Acme Corp", City: "Austin", State: "TX", NAICSCode: "5415"},
		{ID: "E2", Name: "Acme Labs", City: "Boston", State: "MA", NAICSCode: "3254"},
		{ID: "E3", Name: "Beta Bank", City: "Austin", State: "TX", NAICSCode: "5221"},
		{ID: "E4", Name: "Gamma Co", City: "Denver", State: "CO", NAICSCode: "5221"},
		{ID: "E5", Name: "No Stats Inc", City: "Austin", State: "TX", NAICSCode: "5221"},
		{ID: "E6", Name: "Delta LLC", City: "Austin ", State: "TX", NAICSCode: "9999"},
		{ID: "E7", Name: "Unplaced", City: "", State: "", NAICSCode: "5221"},
	}).Error)

	require.NoError(t, db.Create([]dbmodels.Position{
		{EmployerID: "E1", JobTitle: "Software Engineer", WageRateOfPayFrom: 100000, WageUnitOfPay: "Year"},
		{EmployerID: "E1", JobTitle: "Accountant", WageRateOfPayFrom: 40, WageRateOfPayTo: ptr(60.0), WageUnitOfPay: "Hour"},
		{EmployerID: "E2", JobTitle: "Scientist", WageRateOfPayFrom: 100000, WageUnitOfPay: "Year"},
		{EmployerID: "E2", JobTitle: "Lab Tech", WageRateOfPayFrom: 5000, WageRateOfPayTo: ptr(7000.0), WageUnitOfPay: "Decade"},
		{EmployerID: "E3", JobTitle: "Analyst (2)", WageRateOfPayFrom: 8000, WageRateOfPayTo: ptr(10000.0), WageUnitOfPay: "Month"},
		{EmployerID: "E5", JobTitle: "Teller", WageRateOfPayFrom: 20, WageUnitOfPay: "Hour"},
	}).Error)

	require.NoError(t, db.Create([]dbmodels.Case{
		{CaseNumber: "C1", CaseStatus: "Certified", EmployerID: "E1", JobTitle: "Software Engineer", SOCCode: "15-1252",
			ReceivedDate: day(2020, 1, 10), DecisionDate: day(2020, 2, 1)},
		{CaseNumber: "C2", CaseStatus: "Denied", EmployerID: "E1", JobTitle: "Software Engineer", SOCCode: "15-1252",
			ReceivedDate: day(2021, 3, 1), DecisionDate: day(2021, 4, 1)},
		{CaseNumber: "C3", CaseStatus: "Certified", EmployerID: "E1", JobTitle: "Accountant", SOCCode: "13-2011",
			ReceivedDate: day(1999, 6, 1), DecisionDate: day(1999, 7, 1)},
		{CaseNumber: "C4", CaseStatus: "Certified", EmployerID: "E2", JobTitle: "Scientist", SOCCode: "19-1042",
			ReceivedDate: day(2022, 1, 1), DecisionDate: day(2022, 2, 1)},
		{CaseNumber: "C5", CaseStatus: "Certified", EmployerID: "E3", JobTitle: "Analyst (2)", SOCCode: "13-2011",
			DecisionDate: day(2023, 1, 1)},
		{CaseNumber: "C6", CaseStatus: "Certified", EmployerID: "E3", JobTitle: "Analyst (2)", SOCCode: "13-2011",
			ReceivedDate: day(2023, 5, 1), DecisionDate: day(2023, 6, 1)},
		{CaseNumber: "C7", CaseStatus: "Certified", EmployerID: "E5", JobTitle: "Teller", SOCCode: "13-2011",
			ReceivedDate: day(2023, 2, 1), DecisionDate: day(2023, 3, 1)},
		{CaseNumber: "C8", CaseStatus: "Withdrawn", EmployerID: "E404", JobTitle: "Ghost", SOCCode: "13-2011",
			ReceivedDate: day(2023, 2, 1), DecisionDate: day(2023, 3, 1)},
	}).Error)

	require.NoError(t, db.Create([]dbmodels.FilingStats{
		{ID: "E1", ContinuingApproval: 3, InitialApproval: 1, ContinuingDenial: 2, InitialDenial: 2},
		{ID: "E2", ContinuingApproval: 9, InitialApproval: 1},
		{ID: "E3", ContinuingApproval: 1, ContinuingDenial: 1, InitialDenial: 2},
		{ID: "E4"},
	}).Error)
}
