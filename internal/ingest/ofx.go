package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/leakwatch/leakwatch/internal/model"
)

// OFXParser reads OFX/QFX bank exports. OFX carries no category
// information, so every transaction lands in the blank category and
// gets bucketed during analysis.
type OFXParser struct{}

// NewOFXParser creates a new OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// ParseFile parses an OFX/QFX file and returns its expense
// transactions tagged with the given file ID. Credits (deposits,
// refunds reported as positive amounts) are skipped; debit amounts are
// flipped positive.
func (p *OFXParser) ParseFile(fileID string, reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(strings.TrimLeft(string(content), " \t\r\n")))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			for _, ofxTx := range stmt.BankTranList.Transactions {
				if txn, ok := p.convertTransaction(fileID, ofxTx); ok {
					transactions = append(transactions, txn)
				}
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			for _, ofxTx := range stmt.BankTranList.Transactions {
				if txn, ok := p.convertTransaction(fileID, ofxTx); ok {
					transactions = append(transactions, txn)
				}
			}
		}
	}

	slog.Info("parsed OFX file",
		"file_id", fileID,
		"transactions", len(transactions))

	return transactions, nil
}

func (p *OFXParser) convertTransaction(fileID string, ofxTx ofxgo.Transaction) (model.Transaction, bool) {
	amount, _ := ofxTx.TrnAmt.Float64()
	// OFX reports debits as negative. Income is not spending.
	if amount >= 0 {
		return model.Transaction{}, false
	}

	txn := model.Transaction{
		ID:       string(ofxTx.FiTID),
		FileID:   fileID,
		Date:     ofxTx.DtPosted.Time.UTC(),
		Merchant: p.merchantName(ofxTx),
		Amount:   -amount,
	}
	txn.Hash = txn.GenerateHash()
	return txn, true
}

func (p *OFXParser) merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}
	name := strings.TrimSpace(string(tx.Name))
	if name == "" {
		name = strings.TrimSpace(string(tx.Memo))
	}
	return name
}
