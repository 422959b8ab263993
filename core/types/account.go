package types

// Account carries the per-account metadata tracked outside the token balance
// tables. Balances live in their own per-symbol rows so new assets never
// require an account schema migration.
type Account struct {
	Nonce uint64 `json:"nonce"`
}
