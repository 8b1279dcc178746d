package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NamedAccount derives a deterministic ledger account from a label.
// Venue accounts, the operator, and the executor all get stable
// addresses this way, so runs are reproducible and logs comparable.
func NamedAccount(label string) Account {
	hash := crypto.Keccak256([]byte("flashpool/" + label))
	return common.BytesToAddress(hash[12:])
}
