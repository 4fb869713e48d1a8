package domain

import "time"

// Transaction types recorded in the ledger
const (
	TxTypeEntryFee = "entry_fee"
	TxTypeRollFee  = "roll_fee"
	TxTypeDeposit  = "pool_deposit"
	TxTypePayout   = "payout"
	TxTypeFunding  = "funding"
)

// Transaction is one side of a ledger movement. A transfer between two
// accounts is recorded as a negative row for the sender and a positive row for
// the receiver.
type Transaction struct {
	ID        int64                  `db:"id" json:"id"`
	Account   Identity               `db:"account" json:"account"`
	Type      string                 `db:"type" json:"type"`
	Amount    int64                  `db:"amount" json:"amount"`
	Meta      map[string]interface{} `db:"meta" json:"meta,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Account is a ledger balance holder. Players and session pools are both
// accounts.
type Account struct {
	Identity  Identity  `db:"identity" json:"identity"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
