// Package emvqr decodes EMVCo Merchant-Presented QR payloads (Thai QR /
// PromptPay) and verifies payment slips against an expected transaction.
//
// Everything in this package is a pure function over an in-memory string:
// no I/O, no shared state, safe to call concurrently.
package emvqr

import "strconv"

// Mapping associates a 2-character TLV tag with its decoded node.
type Mapping map[string]Node

// Node is one decoded TLV field. For the composite merchant-account
// template tags ("26".."32") Sub holds the recursively decoded value and
// Value keeps the raw sub-stream; for every other tag Sub is nil.
type Node struct {
	Tag   string
	Value string
	Sub   Mapping
}

// Composite reports whether the node carries a nested TLV stream.
func (n Node) Composite() bool { return n.Sub != nil }

// Tags 26..32 are reserved for merchant account information templates.
// PromptPay identifiers typically live under tag 29.
func compositeTag(tag string) bool {
	switch tag {
	case "26", "27", "28", "29", "30", "31", "32":
		return true
	}
	return false
}

// Parse decodes a TLV payload into a tag keyed mapping.
//
// The scan is maximally permissive: unknown tags are kept as-is, a value
// shorter than its declared length is truncated to whatever remains, and a
// malformed (non-numeric) length field stops the scan, returning the fields
// decoded so far. When a tag repeats within one level the last occurrence
// wins. Parse never fails; structural damage surfaces later as a CRC or
// field mismatch.
func Parse(payload string) Mapping {
	fields := make(Mapping)
	for i := 0; i+4 <= len(payload); {
		tag := payload[i : i+2]
		length, err := strconv.Atoi(payload[i+2 : i+4])
		if err != nil || length < 0 {
			break
		}
		i += 4
		end := i + length
		if end > len(payload) {
			end = len(payload)
		}
		node := Node{Tag: tag, Value: payload[i:end]}
		if compositeTag(tag) {
			node.Sub = Parse(node.Value)
		}
		fields[tag] = node
		i = end
	}
	return fields
}
