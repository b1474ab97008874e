package core

// Account is keyed by its chain-visible name string (spec.md §3). Faction
// is FactionNone until the account's first valid character creation sets
// it; it never changes afterward.
//
// Grounded on the teacher's core/account_and_balance_operations.go
// AccountManager: same "create with zero balance", "transfer with
// insufficient-funds check" shape, generalised here onto the generic
// Table[K, T] (core/store.go) instead of a bespoke map+mutex struct.
type Account struct {
	Name            string
	Faction         Faction
	Balance         Amount
	BurnsaleBalance Amount
	Kills           uint64
	Fame            int64
	SkillXP         map[string]uint64
}

// AccountTable is the Account row store.
type AccountTable = Table[string, Account]

// NewAccountTable constructs an empty account table.
func NewAccountTable() *AccountTable { return NewTable[string, Account]() }

// EnsureAccount fetches name's account, creating it with a zero balance
// and FactionNone if absent (spec.md §4.7 step 1: "Resolve the account;
// create it with zero balance if absent").
func EnsureAccount(t *AccountTable, name string) *Handle[string, Account] {
	if h, ok := t.Fetch(name); ok {
		return h
	}
	return t.Create(name, Account{Name: name, SkillXP: make(map[string]uint64)})
}

// CreditDeveloperPayment adds amt to the account's balance, used when a
// move's `out` object pays the developer address to cover e.g. character
// creation costs (spec.md §4.7 step 1, §6). Accounting for the developer
// address itself is the engine's job; routing the actual payment is the
// chain's.
func (a *Account) CreditDeveloperPayment(amt Amount) {
	a.Balance += amt
}

// Transfer moves amt from src to dst, both already-leased handles (the
// caller is responsible for leasing both — and for never leasing the same
// account twice, which Table enforces). Returns a *MoveError, never a
// ConsistencyError: insufficient balance is a user-input condition, not an
// invariant violation.
func Transfer(src, dst *Handle[string, Account], amt Amount) error {
	if amt == 0 {
		return moveErrorf("transfer amount must be positive")
	}
	srcRow := src.Get()
	if srcRow.Balance < amt {
		return moveErrorf("insufficient balance: have %d, need %d", srcRow.Balance, amt)
	}
	srcRow.Balance -= amt
	dst.Get().Balance += amt
	src.TouchColumns()
	dst.TouchColumns()
	return nil
}
