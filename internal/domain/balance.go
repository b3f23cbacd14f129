package domain

// Balance состояние счета, полученное сверткой журнала.
type Balance struct {
	Available Amount
	Held      Amount
}

// Total сумма доступных и заблокированных средств.
func (b Balance) Total() Amount {
	return b.Available + b.Held
}

// Signed возвращает влияние записи на общий баланс счета (Available + Held). Hold и release только
// перекладывают средства между доступными и заблокированными, поэтому дают ноль.
func (e LedgerEntry) Signed() Amount {
	if e.Status == EntryStatusFailed {
		return 0
	}
	switch e.Kind {
	case EntryKindDeposit, EntryKindRefund, EntryKindPayout:
		return e.Amount
	case EntryKindWithdrawal, EntryKindCapture:
		return -e.Amount
	default:
		return 0
	}
}

// Apply возвращает баланс после применения записи. Записи со статусом failed не учитываются.
func (b Balance) Apply(e LedgerEntry) Balance {
	if e.Status == EntryStatusFailed {
		return b
	}
	switch e.Kind {
	case EntryKindDeposit, EntryKindRefund, EntryKindPayout:
		b.Available += e.Amount
	case EntryKindWithdrawal:
		b.Available -= e.Amount
	case EntryKindHold:
		b.Available -= e.Amount
		b.Held += e.Amount
	case EntryKindRelease:
		b.Held -= e.Amount
		b.Available += e.Amount
	case EntryKindCapture:
		b.Held -= e.Amount
	}
	return b
}

// Valid сообщает, что ни одна из частей баланса не ушла в минус.
func (b Balance) Valid() bool {
	return b.Available >= 0 && b.Held >= 0
}

// FoldBalance сворачивает журнал счета в баланс.
func FoldBalance(entries []LedgerEntry) Balance {
	var b Balance
	for _, e := range entries {
		b = b.Apply(e)
	}
	return b
}

// BalanceFromSums строит баланс из сумм записей, сгруппированных по типу. Суммы должны быть посчитаны
// без учета записей со статусом failed.
func BalanceFromSums(sums map[EntryKindType]Amount) Balance {
	var b Balance
	for kind, sum := range sums {
		b = b.Apply(LedgerEntry{Kind: kind, Amount: sum, Status: EntryStatusCompleted})
	}
	return b
}
