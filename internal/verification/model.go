package verification

import (
	"time"

	"github.com/thaipay/slipverify/internal/emvqr"
)

// Record is the audit trail entry written for every slip verification.
// The checkout workflow attaches the verdict to its order; this record is
// what a reviewer pulls up afterwards.
type Record struct {
	ID             string
	OrderRef       string
	PayloadHash    string
	Status         emvqr.VerdictStatus
	Reason         string
	ExpectedAmount float64
	CreatedAt      time.Time
}
