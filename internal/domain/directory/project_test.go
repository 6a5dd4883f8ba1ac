package directory

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

func testProjectInput() NewProjectInput {
	return NewProjectInput{
		Code:         "WHF-2025-001",
		Name:         "Garissa Water Access",
		FundingType:  FundingTypeGrant,
		TotalBudget:  decimal.NewFromInt(50000),
		PrimaryDonor: "ECHO",
	}
}

func TestProjectCodes(t *testing.T) {
	assert.Equal(t, "WHF-2025-001", FormatProjectCode(2025, 1))
	assert.Equal(t, "WHF-2025-042", FormatProjectCode(2025, 42))
	assert.Equal(t, "WHF-2025-1000", FormatProjectCode(2025, 1000))

	t.Run("parse sequence", func(t *testing.T) {
		seq, ok := ParseProjectSequence("WHF-2025-007", 2025)
		require.True(t, ok)
		assert.Equal(t, 7, seq)

		_, ok = ParseProjectSequence("WHF-2024-007", 2025)
		assert.False(t, ok)

		_, ok = ParseProjectSequence("WHF-2025-abc", 2025)
		assert.False(t, ok)
	})

	t.Run("next sequence skips foreign years and garbage", func(t *testing.T) {
		codes := []string{"WHF-2025-001", "WHF-2025-009", "WHF-2024-030", "bogus"}
		assert.Equal(t, 10, NextProjectSequence(codes, 2025))
		assert.Equal(t, 1, NextProjectSequence(nil, 2025))
	})
}

func TestNewProject(t *testing.T) {
	t.Run("creates project in planning with defaults", func(t *testing.T) {
		p, err := NewProject(testProjectInput())
		require.NoError(t, err)

		assert.Equal(t, ProjectStatusPlanning, p.Status)
		assert.Equal(t, "Kenya", p.Country)
		assert.Equal(t, valueobject.USD, p.Currency)
		assert.Equal(t, 1, p.Version)
		assert.Nil(t, p.ClosedAt)
	})

	t.Run("uppercases the code", func(t *testing.T) {
		input := testProjectInput()
		input.Code = "whf-2025-002"
		p, err := NewProject(input)
		require.NoError(t, err)
		assert.Equal(t, "WHF-2025-002", p.Code)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, -1, 0)

		tests := []struct {
			name   string
			mutate func(*NewProjectInput)
		}{
			{"empty code", func(i *NewProjectInput) { i.Code = " " }},
			{"empty name", func(i *NewProjectInput) { i.Name = "" }},
			{"invalid funding type", func(i *NewProjectInput) { i.FundingType = "SPONSORSHIP" }},
			{"negative budget", func(i *NewProjectInput) { i.TotalBudget = decimal.NewFromInt(-1) }},
			{"end before start", func(i *NewProjectInput) { i.StartDate = &start; i.EndDate = &end }},
			{"negative beneficiaries", func(i *NewProjectInput) { i.TargetBeneficiaries = -5 }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				input := testProjectInput()
				tt.mutate(&input)
				_, err := NewProject(input)
				assert.Error(t, err)
			})
		}
	})
}

func TestProjectStatusTransitions(t *testing.T) {
	t.Run("happy path planning to closed", func(t *testing.T) {
		p, err := NewProject(testProjectInput())
		require.NoError(t, err)

		require.NoError(t, p.UpdateStatus(ProjectStatusActive))
		require.NoError(t, p.UpdateStatus(ProjectStatusSuspended))
		require.NoError(t, p.UpdateStatus(ProjectStatusActive))
		require.NoError(t, p.UpdateStatus(ProjectStatusCompleted))
		require.NoError(t, p.Close())

		assert.Equal(t, ProjectStatusClosed, p.Status)
		require.NotNil(t, p.ClosedAt)
	})

	t.Run("closed is terminal", func(t *testing.T) {
		p, err := NewProject(testProjectInput())
		require.NoError(t, err)
		require.NoError(t, p.Close())

		err = p.UpdateStatus(ProjectStatusActive)
		assert.Error(t, err)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		p, err := NewProject(testProjectInput())
		require.NoError(t, err)
		v := p.Version

		require.NoError(t, p.UpdateStatus(ProjectStatusPlanning))
		assert.Equal(t, v, p.Version)
	})

	t.Run("planning cannot suspend", func(t *testing.T) {
		p, err := NewProject(testProjectInput())
		require.NoError(t, err)

		err = p.UpdateStatus(ProjectStatusSuspended)
		assert.Error(t, err)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		p, err := NewProject(testProjectInput())
		require.NoError(t, err)

		err = p.UpdateStatus("ARCHIVED")
		assert.Error(t, err)
	})
}

func TestProjectBudget(t *testing.T) {
	p, err := NewProject(testProjectInput())
	require.NoError(t, err)

	t.Run("utilization and remaining", func(t *testing.T) {
		invoiced := decimal.NewFromInt(12500)
		assert.True(t, p.BudgetUtilization(invoiced).Equal(decimal.NewFromInt(25)))
		assert.True(t, p.RemainingBudget(invoiced).Equal(decimal.NewFromInt(37500)))
		assert.False(t, p.IsBudgetExceeded(invoiced))
	})

	t.Run("exceeded budget", func(t *testing.T) {
		invoiced := decimal.NewFromInt(60000)
		assert.True(t, p.IsBudgetExceeded(invoiced))
		assert.True(t, p.RemainingBudget(invoiced).IsNegative())
	})

	t.Run("zero budget reports zero utilization", func(t *testing.T) {
		input := testProjectInput()
		input.TotalBudget = decimal.Zero
		zp, err := NewProject(input)
		require.NoError(t, err)

		assert.False(t, zp.HasBudget())
		assert.True(t, zp.BudgetUtilization(decimal.NewFromInt(100)).IsZero())
		assert.False(t, zp.IsBudgetExceeded(decimal.NewFromInt(100)))
	})
}

func TestProjectUpdateDetails(t *testing.T) {
	p, err := NewProject(testProjectInput())
	require.NoError(t, err)
	v := p.Version

	input := testProjectInput()
	input.Name = "Garissa Water Access Phase II"
	input.FundingType = FundingTypeContract
	input.TotalBudget = decimal.NewFromInt(75000)
	input.Region = "North Eastern"
	input.TargetBeneficiaries = 12000

	require.NoError(t, p.UpdateDetails(input))
	assert.Equal(t, "Garissa Water Access Phase II", p.Name)
	assert.Equal(t, FundingTypeContract, p.FundingType)
	assert.True(t, p.TotalBudget.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, 12000, p.TargetBeneficiaries)
	assert.Equal(t, v+1, p.Version)

	t.Run("rejects empty name", func(t *testing.T) {
		bad := testProjectInput()
		bad.Name = "  "
		assert.Error(t, p.UpdateDetails(bad))
	})
}
