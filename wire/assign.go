package wire

import (
	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/core"
	"github.com/osmo-go/pcu-rlcmac/internal/bitbuf"
)

// assignBlockLen is the capacity of a downlink control block (one radio
// block worth of octets, spec §4.A CS-1 size) used for both Packet
// Uplink Assignment and Packet Downlink Assignment.
const assignBlockLen = 23

// Identity selects how a Packet Uplink/Downlink Assignment addresses the
// MS: by an already-assigned TFI on the other link direction, or by
// TLLI for a fresh assignment (spec §4.B).
type Identity struct {
	UseTLLI    bool
	TLLI       uint32
	OldTFI     uint8
	OldIsDL    bool // true selects the downlink TFI namespace, false uplink
}

// UplinkAssignParams carries every field write_packet_uplink_assignment
// needs (spec §4.B "(b) Packet Uplink Assignment").
type UplinkAssignParams struct {
	Identity Identity

	Poll    bool
	RRBP    uint8
	Alpha   uint8
	Gamma   uint8
	TAIdx   int8
	TA      uint8
	TSC     uint8
	ARFCN   uint16
	TFI     uint8
	CS      coding.Scheme
	EGPRS   bool
	WS      uint16

	// USF per timeslot; a zero coding.Scheme / unused slot is signalled
	// by Assigned == false.
	Slots [8]struct {
		Assigned bool
		USF      uint8
	}
}

func writeIdentity(w *bitbuf.Writer, id Identity) error {
	if id.UseTLLI {
		if err := w.WriteField(0, 1); err != nil { // PERSISTENCE_LEVEL off
			return err
		}
		if err := w.WriteField(2, 2); err != nil { // switch TLLI on
			return err
		}
		return w.WriteField(uint64(id.TLLI), 32)
	}
	if err := w.WriteField(0, 1); err != nil { // PERSISTENCE_LEVEL off
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // switch TFI on
		return err
	}
	old := uint64(0)
	if id.OldIsDL {
		old = 1
	}
	if err := w.WriteField(old, 1); err != nil {
		return err
	}
	return w.WriteField(uint64(id.OldTFI), 5)
}

// EncodeUplinkAssignment encodes a Packet Uplink Assignment control
// block, a direct transliteration of write_packet_uplink_assignment
// (spec §4.B).
func EncodeUplinkAssignment(p UplinkAssignParams) ([]byte, error) {
	w := bitbuf.NewWriter(assignBlockLen)

	poll := uint64(0)
	if p.Poll {
		poll = 1
	}
	if err := w.WriteField(1, 2); err != nil { // Payload Type
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // Uplink block with TDMA FN (N+13)
		return nil, err
	}
	if err := w.WriteField(poll, 1); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 3); err != nil { // USF
		return nil, err
	}
	if err := w.WriteField(0xa, 6); err != nil { // message type
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // Page Mode
		return nil, err
	}

	if err := writeIdentity(w, p.Identity); err != nil {
		return nil, err
	}

	if !p.EGPRS {
		if err := w.WriteField(0, 1); err != nil { // message escape off
			return nil, err
		}
		codingCmd := uint64(0)
		if p.CS >= coding.CS1 {
			codingCmd = uint64(p.CS) - uint64(coding.CS1)
		}
		if err := w.WriteField(codingCmd, 2); err != nil {
			return nil, err
		}
		if err := w.WriteField(1, 1); err != nil { // TLLI_BLOCK_CHANNEL_CODING
			return nil, err
		}
		if err := w.WriteField(1, 1); err != nil { // TIMING_ADVANCE_VALUE on
			return nil, err
		}
		if err := w.WriteField(uint64(p.TA), 6); err != nil {
			return nil, err
		}
		if err := writeTAIndex(w, p.TAIdx); err != nil {
			return nil, err
		}
	} else {
		wsEnc := (p.WS - 64) / 32
		codingCmd := uint64(0)
		if p.CS >= coding.MCS1 {
			codingCmd = uint64(p.CS) - uint64(coding.MCS1)
		}
		if err := w.WriteField(1, 1); err != nil { // message escape on
			return nil, err
		}
		if err := w.WriteField(0, 2); err != nil { // EGPRS message contents
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no CONTENTION_RESOLUTION_TLLI
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no COMPACT reduced MA
			return nil, err
		}
		if err := w.WriteField(codingCmd, 4); err != nil { // EGPRS Modulation and Coding
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no RESEGMENT
			return nil, err
		}
		if err := w.WriteField(uint64(wsEnc), 5); err != nil {
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no Access Technologies Request
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no ARAC retransmission request
			return nil, err
		}
		if err := w.WriteField(1, 1); err != nil { // TLLI_BLOCK_CHANNEL_CODING
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no BEP_PERIOD2
			return nil, err
		}
		if err := w.WriteField(1, 1); err != nil { // TIMING_ADVANCE_VALUE on
			return nil, err
		}
		if err := w.WriteField(uint64(p.TA), 6); err != nil {
			return nil, err
		}
		if err := writeTAIndex(w, p.TAIdx); err != nil {
			return nil, err
		}
		if err := w.WriteField(0, 1); err != nil { // no Packet Extended Timing Advance
			return nil, err
		}
	}

	if err := w.WriteField(1, 1); err != nil { // Frequency Parameters present
		return nil, err
	}
	if err := w.WriteField(uint64(p.TSC), 3); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // ARFCN present
		return nil, err
	}
	if err := w.WriteField(uint64(p.ARFCN), 10); err != nil {
		return nil, err
	}

	if err := w.WriteField(1, 2); err != nil { // Dynamic Allocation
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // Extended Dynamic Allocation off
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // P0 off
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // USF_GRANULARITY
		return nil, err
	}
	if err := w.WriteField(1, 1); err != nil { // switch TFI on
		return nil, err
	}
	if err := w.WriteField(uint64(p.TFI), 5); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // TBF Starting Time off
		return nil, err
	}

	withPower := p.Alpha != 0 || p.Gamma != 0
	powerBit := uint64(0)
	if withPower {
		powerBit = 1
	}
	if err := w.WriteField(powerBit, 1); err != nil {
		return nil, err
	}
	if withPower {
		if err := w.WriteField(uint64(p.Alpha), 4); err != nil {
			return nil, err
		}
	}

	for ts := 0; ts < 8; ts++ {
		slot := p.Slots[ts]
		if !slot.Assigned {
			if err := w.WriteField(0, 1); err != nil {
				return nil, err
			}
			continue
		}
		if err := w.WriteField(1, 1); err != nil {
			return nil, err
		}
		if err := w.WriteField(uint64(slot.USF), 3); err != nil {
			return nil, err
		}
		if withPower {
			if err := w.WriteField(uint64(p.Gamma), 5); err != nil {
				return nil, err
			}
		}
	}

	w.PadToByte()
	return w.Bytes(), nil
}

// DownlinkAssignParams carries every field
// write_packet_downlink_assignment needs (spec §4.B "(a) Packet
// Downlink Assignment").
type DownlinkAssignParams struct {
	Identity   Identity
	ControlAck bool

	Timeslots uint8 // bitmask, MSB = TS0

	TA      uint8
	TAIdx   int8
	TATS    uint8
	Alpha   uint8
	Gamma   uint8
	TSC     uint8
	ARFCN   uint16
	TFI     uint8
	EGPRS   bool
	WS      uint16
}

// EncodeDownlinkAssignment encodes a Packet Downlink Assignment control
// block, transliterated from write_packet_downlink_assignment (spec
// §4.B).
func EncodeDownlinkAssignment(p DownlinkAssignParams) ([]byte, error) {
	const op = "wire.EncodeDownlinkAssignment"
	if p.ARFCN > 1023 {
		return nil, core.New(core.Malformed, op, "ARFCN out of range")
	}
	w := bitbuf.NewWriter(assignBlockLen)

	if err := w.WriteField(1, 2); err != nil { // Payload Type
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // RRBP (N+13)
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // SP
		return nil, err
	}
	if err := w.WriteField(0, 3); err != nil { // USF
		return nil, err
	}
	if err := w.WriteField(0x2, 6); err != nil { // message type
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // Page Mode
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // PERSISTENCE_LEVEL off
		return nil, err
	}

	if err := writeIdentity(w, p.Identity); err != nil {
		return nil, err
	}

	if err := w.WriteField(0, 1); err != nil { // message escape
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // MAC_MODE dynamic
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // RLC_MODE acknowledged
		return nil, err
	}
	ack := uint64(0)
	if p.ControlAck {
		ack = 1
	}
	if err := w.WriteField(ack, 1); err != nil {
		return nil, err
	}
	if err := w.WriteField(uint64(p.Timeslots), 8); err != nil {
		return nil, err
	}

	if err := w.WriteField(1, 1); err != nil { // TIMING_ADVANCE_VALUE on
		return nil, err
	}
	if err := w.WriteField(uint64(p.TA), 6); err != nil {
		return nil, err
	}
	if err := writeTAIndex(w, p.TAIdx); err != nil {
		return nil, err
	}
	if p.TAIdx >= 0 {
		if err := w.WriteField(uint64(p.TATS), 3); err != nil {
			return nil, err
		}
	}

	if err := w.WriteField(0, 1); err != nil { // P0/BTS_PWR_CTRL_MODE off
		return nil, err
	}

	if err := w.WriteField(1, 1); err != nil { // Frequency Parameters present
		return nil, err
	}
	if err := w.WriteField(uint64(p.TSC), 3); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // ARFCN present
		return nil, err
	}
	if err := w.WriteField(uint64(p.ARFCN), 10); err != nil {
		return nil, err
	}

	if err := w.WriteField(1, 1); err != nil { // DOWNLINK_TFI_ASSIGNMENT present
		return nil, err
	}
	if err := w.WriteField(uint64(p.TFI), 5); err != nil {
		return nil, err
	}

	if err := w.WriteField(1, 1); err != nil { // Power Control Parameters present
		return nil, err
	}
	if err := w.WriteField(uint64(p.Alpha), 4); err != nil {
		return nil, err
	}
	for ts := 0; ts < 8; ts++ {
		if p.Timeslots&(0x80>>uint(ts)) != 0 {
			if err := w.WriteField(1, 1); err != nil {
				return nil, err
			}
			if err := w.WriteField(uint64(p.Gamma), 5); err != nil {
				return nil, err
			}
		} else if err := w.WriteField(0, 1); err != nil {
			return nil, err
		}
	}

	if err := w.WriteField(0, 1); err != nil { // TBF Starting Time off
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // Measurement Mapping off
		return nil, err
	}

	if !p.EGPRS {
		if err := w.WriteField(0, 1); err != nil { // AdditionsR99 off
			return nil, err
		}
		w.PadToByte()
		return w.Bytes(), nil
	}

	if err := w.WriteField(1, 1); err != nil { // AdditionsR99 present
		return nil, err
	}
	if err := w.WriteField(1, 1); err != nil { // EGPRS_Params present
		return nil, err
	}
	wsEnc := (p.WS - 64) / 32
	if err := w.WriteField(uint64(wsEnc), 5); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // LINK_QUALITY_MEASUREMENT_MODE
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // BEP_PERIOD2 absent
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // Packet Extended TA absent
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // COMPACT reduced MA absent
		return nil, err
	}

	w.PadToByte()
	return w.Bytes(), nil
}
