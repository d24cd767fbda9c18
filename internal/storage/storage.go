package storage

import "radiswap/internal/model"

// Storage defines a sink for receipts.
type Storage interface {
	PutReceiptBatch(receipts []model.Receipt) error
}

// FailedSink records instructions the ledger rejected.
type FailedSink interface {
	PutFailedBatch(failed []model.FailedInstruction) error
}
