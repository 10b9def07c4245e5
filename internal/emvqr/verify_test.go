package emvqr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	receiverID = "0066895123456"

	// Same merchant template as goodPayload, amount 99.50.
	offAmountPayload = "00020101021229370016A000000677010111011300668951234565303764540599.505802TH6304BFEA"

	// Country code US instead of TH.
	foreignPayload = "00020101021229370016A000000677010111011300668951234565406100.005802US630486B5"

	// Identifier under template tag 26 instead of 29, no country field.
	tag26Payload = "0002012617011300668951234565406100.0063044C31"

	// No amount and no country field at all.
	bareMinimumPayload = "00020101021129370016A0000006770101110113006689512345663041376"
)

func TestVerifySlipAcceptsMatchingSlip(t *testing.T) {
	verdict := VerifySlip(goodPayload, receiverID, 100.00)

	assert.Equal(t, StatusVerifiedPrelim, verdict.Status)
	assert.Empty(t, verdict.Reason)
}

func TestVerifySlipAmountTolerance(t *testing.T) {
	// 0.004 off is rounding noise; 0.02 off is a different payment.
	assert.Equal(t, StatusVerifiedPrelim, VerifySlip(goodPayload, receiverID, 100.004).Status)
	assert.Equal(t, StatusReview, VerifySlip(goodPayload, receiverID, 100.02).Status)
}

func TestVerifySlipAmountMismatchReportsCheck(t *testing.T) {
	verdict := VerifySlip(offAmountPayload, receiverID, 100.00)

	require.Equal(t, StatusReview, verdict.Status)
	assert.Contains(t, verdict.Reason, `"amountMatches":false`)
	assert.Contains(t, verdict.Reason, `"crcOk":true`)
	assert.Contains(t, verdict.Reason, `"amount":"99.50"`)
}

func TestVerifySlipAccountSubstringMatch(t *testing.T) {
	// The configured receiver id may be a suffix of the padded proxy value.
	assert.Equal(t, StatusVerifiedPrelim, VerifySlip(goodPayload, "895123456", 100.00).Status)

	verdict := VerifySlip(goodPayload, "999999999", 100.00)
	require.Equal(t, StatusReview, verdict.Status)
	assert.Contains(t, verdict.Reason, `"accountMatches":false`)
}

func TestVerifySlipNoExpectedAccountSkipsCheck(t *testing.T) {
	assert.Equal(t, StatusVerifiedPrelim, VerifySlip(goodPayload, "", 100.00).Status)
}

func TestVerifySlipTemplateTag26Fallback(t *testing.T) {
	assert.Equal(t, StatusVerifiedPrelim, VerifySlip(tag26Payload, receiverID, 100.00).Status)
}

func TestVerifySlipMissingOptionalFieldsPassVacuously(t *testing.T) {
	// No amount and no country field: any expected amount is acceptable.
	assert.Equal(t, StatusVerifiedPrelim, VerifySlip(bareMinimumPayload, receiverID, 12345.67).Status)
}

func TestVerifySlipRejectsForeignCountryCode(t *testing.T) {
	verdict := VerifySlip(foreignPayload, receiverID, 100.00)

	require.Equal(t, StatusReview, verdict.Status)
	assert.Contains(t, verdict.Reason, `"currencyMatches":false`)
	assert.Contains(t, verdict.Reason, `"currency":"US"`)
}

func TestCurrencyAcceptedVariants(t *testing.T) {
	for _, code := range []string{"TH", "th", "THB", "764", ""} {
		fields := Mapping{}
		if code != "" {
			fields[currencyTag] = Node{Tag: currencyTag, Value: code}
		}
		_, ok := currencyAccepted(fields)
		assert.True(t, ok, "code %q should be accepted", code)
	}

	_, ok := currencyAccepted(Mapping{currencyTag: {Tag: currencyTag, Value: "US"}})
	assert.False(t, ok)
}

func TestVerifySlipRejectsMalformedPayloads(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":          "",
		"whitespace":     "   ",
		"too short":      "00",
		"non tlv header": "QRDATA000201",
		"control chars":  "0002\x0101",
	} {
		verdict := VerifySlip(payload, receiverID, 100.00)
		require.Equal(t, StatusReview, verdict.Status, name)
		assert.Equal(t, ReasonInvalidQR, verdict.Reason, name)
	}
}

func TestVerifySlipBadCRCFlagsReview(t *testing.T) {
	corrupted := strings.Replace(goodPayload, "SOMCHAI", "SOMCHAY", 1)

	verdict := VerifySlip(corrupted, receiverID, 100.00)
	require.Equal(t, StatusReview, verdict.Status)
	assert.Contains(t, verdict.Reason, `"crcOk":false`)
}

func TestVerifySlipUnparsableAmountIsMismatch(t *testing.T) {
	// Amount field present but not a number: presence with mismatch flags.
	verdict := VerifySlip("000201"+"5406ABCDEF"+"63040000", "", 100.00)

	require.Equal(t, StatusReview, verdict.Status)
	assert.Contains(t, verdict.Reason, `"amountMatches":false`)
}

func TestVerifySlipIsIdempotent(t *testing.T) {
	assert.Equal(t, VerifySlip(goodPayload, receiverID, 100.00), VerifySlip(goodPayload, receiverID, 100.00))
}
