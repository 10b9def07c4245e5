package emvqr

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// VerdictStatus is the outcome of a slip verification. There are exactly
// two reachable states; both are terminal for the call.
type VerdictStatus string

const (
	// StatusVerifiedPrelim marks a slip whose checksum and expected
	// transaction fields all check out. "Preliminary" because only the
	// settlement bank can confirm the transfer actually happened.
	StatusVerifiedPrelim VerdictStatus = "VERIFIED_PRELIM"

	// StatusReview marks a slip that needs a human look.
	StatusReview VerdictStatus = "REVIEW"
)

const (
	// ReasonInvalidQR is returned when the payload is empty or does not
	// look like a TLV stream at all.
	ReasonInvalidQR = "QR not found or invalid"

	// ReasonDecodeError is returned when verification itself blew up on a
	// pathological payload. Verification must never block checkout, so the
	// failure degrades to a review flag.
	ReasonDecodeError = "QR decode error"
)

// Verdict is consumed by the checkout workflow to decide whether an order
// is provisionally accepted or flagged for manual review. Reason is empty
// on success.
type Verdict struct {
	Status VerdictStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// checkReport summarises which policy checks failed so a reviewer can see
// why a slip was flagged. Serialized compactly into Verdict.Reason.
type checkReport struct {
	CRCOK           bool   `json:"crcOk"`
	AccountMatches  bool   `json:"accountMatches"`
	AmountMatches   bool   `json:"amountMatches"`
	CurrencyMatches bool   `json:"currencyMatches"`
	Amount          string `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

const (
	amountTag   = "54"
	currencyTag = "58"

	// Absorbs rounding between minor-unit storage and float display.
	amountTolerance = 0.01
)

// VerifySlip checks a decoded QR payload against the expected payment.
//
// expectedAccountID is the configured payment-receiver identifier; when
// empty the account check is skipped. expectedAmount is the order total.
// Optional payload fields that are absent pass vacuously; only presence
// with a mismatch flags the slip. VerifySlip never panics outward: any
// failure mode degrades to a REVIEW verdict.
func VerifySlip(payload, expectedAccountID string, expectedAmount float64) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{Status: StatusReview, Reason: ReasonDecodeError}
		}
	}()

	payload = strings.TrimSpace(payload)
	if !looksLikeTLV(payload) {
		return Verdict{Status: StatusReview, Reason: ReasonInvalidQR}
	}

	crc := VerifyCRC(payload)
	fields := Parse(payload)

	accountOK := expectedAccountID == "" || containsAccount(merchantTemplate(fields), expectedAccountID)
	amount, amountOK := amountMatches(fields, expectedAmount)
	currency, currencyOK := currencyAccepted(fields)

	if crc.OK && accountOK && amountOK && currencyOK {
		return Verdict{Status: StatusVerifiedPrelim}
	}

	report, _ := json.Marshal(checkReport{
		CRCOK:           crc.OK,
		AccountMatches:  accountOK,
		AmountMatches:   amountOK,
		CurrencyMatches: currencyOK,
		Amount:          amount,
		Currency:        currency,
	})
	return Verdict{Status: StatusReview, Reason: string(report)}
}

// looksLikeTLV is the cheap shape gate ahead of parsing: printable ASCII
// with a digit-led tag/length header. Anything else means the upstream QR
// image decode produced garbage (or nothing).
func looksLikeTLV(payload string) bool {
	if len(payload) < 4 {
		return false
	}
	for i := 0; i < len(payload); i++ {
		if payload[i] < 0x20 || payload[i] > 0x7e {
			return false
		}
	}
	for i := 0; i < 4; i++ {
		if payload[i] < '0' || payload[i] > '9' {
			return false
		}
	}
	return true
}

// merchantTemplate extracts the merchant-account sub-mapping. PromptPay
// issuers put the identifier under template tag 29; some acquirers use 26.
func merchantTemplate(fields Mapping) Mapping {
	if node, ok := fields["29"]; ok && node.Composite() {
		return node.Sub
	}
	if node, ok := fields["26"]; ok && node.Composite() {
		return node.Sub
	}
	return nil
}

// containsAccount scans every sub-field of the template, regardless of
// sub-tag, for the expected identifier as a substring. Issuers disagree on
// which sub-tag carries the proxy ID and often pad it with a prefix.
func containsAccount(template Mapping, expectedAccountID string) bool {
	for _, node := range template {
		if strings.Contains(node.Value, expectedAccountID) {
			return true
		}
	}
	return false
}

func amountMatches(fields Mapping, expected float64) (string, bool) {
	node, ok := fields[amountTag]
	if !ok {
		return "", true
	}
	value, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return node.Value, false
	}
	return node.Value, math.Abs(value-expected) < amountTolerance
}

func currencyAccepted(fields Mapping) (string, bool) {
	node, ok := fields[currencyTag]
	if !ok || node.Value == "" {
		return "", true
	}
	switch strings.ToUpper(node.Value) {
	case "TH", "THB", "764":
		return node.Value, true
	}
	return node.Value, false
}
