package domain

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BalanceTestSuite struct {
	suite.Suite
}

func TestBalanceSuite(t *testing.T) {
	suite.Run(t, new(BalanceTestSuite))
}

func entry(kind EntryKindType, amount Amount) LedgerEntry {
	return LedgerEntry{Kind: kind, Amount: amount, Status: EntryStatusCompleted}
}

func (s *BalanceTestSuite) TestFoldBalance() {
	cases := []struct {
		name     string
		entries  []LedgerEntry
		expected Balance
	}{
		{
			name:     "empty ledger",
			expected: Balance{},
		},
		{
			name: "deposit then hold",
			entries: []LedgerEntry{
				entry(EntryKindDeposit, 1000),
				entry(EntryKindHold, 150),
			},
			expected: Balance{Available: 850, Held: 150},
		},
		{
			name: "hold released",
			entries: []LedgerEntry{
				entry(EntryKindDeposit, 1000),
				entry(EntryKindHold, 150),
				entry(EntryKindRelease, 150),
			},
			expected: Balance{Available: 1000},
		},
		{
			name: "hold captured",
			entries: []LedgerEntry{
				entry(EntryKindDeposit, 1000),
				entry(EntryKindHold, 200),
				entry(EntryKindCapture, 200),
			},
			expected: Balance{Available: 800},
		},
		{
			name: "withdrawal payout refund",
			entries: []LedgerEntry{
				entry(EntryKindDeposit, 500),
				entry(EntryKindWithdrawal, 100),
				entry(EntryKindPayout, 300),
				entry(EntryKindRefund, 50),
			},
			expected: Balance{Available: 750},
		},
		{
			name: "failed entries are ignored",
			entries: []LedgerEntry{
				entry(EntryKindDeposit, 500),
				{Kind: EntryKindWithdrawal, Amount: 500, Status: EntryStatusFailed},
			},
			expected: Balance{Available: 500},
		},
		{
			name: "pending entries count",
			entries: []LedgerEntry{
				entry(EntryKindDeposit, 500),
				{Kind: EntryKindWithdrawal, Amount: 200, Status: EntryStatusPending},
			},
			expected: Balance{Available: 300},
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			b := FoldBalance(tc.entries)
			s.Equal(tc.expected, b)

			// общий баланс всегда равен сумме знаковых значений записей
			var signed Amount
			for _, e := range tc.entries {
				signed += e.Signed()
			}
			s.Equal(signed, b.Total())
		})
	}
}

func (s *BalanceTestSuite) TestBalanceFromSumsMatchesFold() {
	entries := []LedgerEntry{
		entry(EntryKindDeposit, 1000),
		entry(EntryKindDeposit, 250),
		entry(EntryKindHold, 300),
		entry(EntryKindHold, 100),
		entry(EntryKindRelease, 100),
		entry(EntryKindCapture, 300),
		entry(EntryKindPayout, 40),
	}
	sums := make(map[EntryKindType]Amount)
	for _, e := range entries {
		sums[e.Kind] += e.Amount
	}
	s.Equal(FoldBalance(entries), BalanceFromSums(sums))
}

func (s *BalanceTestSuite) TestValid() {
	s.True(Balance{}.Valid())
	s.False(Balance{Available: -1}.Valid())
	s.False(Balance{Held: -1}.Valid())
}
