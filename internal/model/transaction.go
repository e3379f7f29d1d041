// Package model defines the core domain types for spending analysis.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single categorized financial transaction.
// Transactions are immutable once imported.
type Transaction struct {
	Date     time.Time
	ID       string
	FileID   string
	Category string
	Merchant string
	Hash     string
	Amount   float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s:%s",
		t.FileID,
		t.Date.Format("2006-01-02T15:04:05"),
		t.Amount,
		t.Merchant,
		t.Category)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
