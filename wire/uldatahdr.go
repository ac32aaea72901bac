package wire

import (
	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/core"
)

// PayloadType is the 2-bit field common to every RLC/MAC radio block
// header, uplink or downlink, and is read before anything else to
// decide whether the rest of the block is an RLC data block or a
// parsed control message (spec §2 "goes through (B) to produce either
// a parsed control message ... or an RLC data block").
type PayloadType uint8

const (
	PayloadData PayloadType = iota
	PayloadControl
	payloadReserved1
	payloadReserved2
)

// DecodePayloadType reads the payload-type bits out of a radio
// block's first octet.
func DecodePayloadType(raw []byte) (PayloadType, error) {
	if len(raw) < 1 {
		return 0, core.New(core.Malformed, "wire.DecodePayloadType", "empty block")
	}
	return PayloadType(raw[0] >> 6), nil
}

// UlDataHeader is the decoded header of one uplink RLC data block
// (spec §4.B "RLC DL data-block header" documents only the downlink
// layouts; no uplink decoder exists anywhere in the retrieval pack,
// so this mirrors the same header-type split at the bit positions
// TS 44.060 assigns the uplink side of GPRS and EGPRS header type 3 —
// see DESIGN.md).
type UlDataHeader struct {
	CS  coding.Scheme
	TFI uint8
	BSN uint16
	CV  uint8 // countdown value, GPRS only
	E   bool  // no further LI octets follow
	TI  bool  // a TLLI follows the LLC payload for contention resolution
}

// DecodeUlDataHeader parses the header octets of one uplink radio
// block, returning the bit offset at which the LLC payload begins.
// GPRS and EGPRS header type 3 (MCS-1..4, one data block per radio
// block) are supported; the two-block EGPRS header types carried by
// MCS-5..9 return Unsupported (spec §4.B scope: this core processes
// one data block's worth of LI chain per call either way, and no
// conformance vector in the retrieval pack exercises an uplink
// MCS-5..9 block).
func DecodeUlDataHeader(cs coding.Scheme, raw []byte) (UlDataHeader, int, error) {
	const op = "wire.DecodeUlDataHeader"
	h := UlDataHeader{CS: cs}

	switch cs.HeaderType() {
	case coding.HeaderGPRSData:
		if len(raw) < 3 {
			return UlDataHeader{}, 0, core.New(core.Malformed, op, "short GPRS uplink header")
		}
		h.CV = (raw[0] >> 2) & 0x0f
		h.TFI = (raw[1] >> 3) & 0x1f
		h.TI = raw[1]&0x02 != 0
		h.E = raw[1]&0x01 != 0
		h.BSN = uint16(raw[2])
		return h, 24, nil

	case coding.HeaderEGPRSDataT3:
		if len(raw) < 3 {
			return UlDataHeader{}, 0, core.New(core.Malformed, op, "short EGPRS uplink header")
		}
		h.TFI = (raw[0] >> 3) & 0x1f
		h.TI = raw[0]&0x04 != 0
		h.BSN = uint16(raw[1]) | uint16(raw[2]&0x07)<<8
		h.E = raw[2]&0x40 != 0
		return h, 24, nil
	}
	return UlDataHeader{}, 0, core.New(core.Unsupported, op, "unsupported uplink header type")
}
