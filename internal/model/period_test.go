package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriod(t *testing.T) {
	p := Period{Year: 2025, Month: time.August}

	assert.Equal(t, "2025-08", p.String())
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, Period{Year: 2025, Month: time.July}, p.Previous())
}

func TestPeriod_PreviousAcrossYear(t *testing.T) {
	p := Period{Year: 2025, Month: time.January}
	assert.Equal(t, Period{Year: 2024, Month: time.December}, p.Previous())
}

func TestPeriod_Contains(t *testing.T) {
	p := Period{Year: 2025, Month: time.August}

	assert.True(t, p.Contains(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)))
}

func TestGenerateHash(t *testing.T) {
	txn := Transaction{
		FileID:   "file-1",
		Date:     time.Date(2025, 8, 1, 9, 15, 0, 0, time.UTC),
		Category: "Cafe",
		Merchant: "Corner Cafe",
		Amount:   4.50,
	}

	hash := txn.GenerateHash()
	assert.NotEmpty(t, hash)
	assert.Equal(t, hash, txn.GenerateHash())

	other := txn
	other.Amount = 5.00
	assert.NotEqual(t, hash, other.GenerateHash())
}
