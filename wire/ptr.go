package wire

import (
	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/core"
	"github.com/osmo-go/pcu-rlcmac/internal/bitbuf"
)

// ptrBlockLen is the capacity of a Packet Timeslot Reconfigure control
// block (spec §4.B "(e) Packet Timeslot Reconfigure").
const ptrBlockLen = 23

// TimeslotReconfigureParams carries every field write_packet_ts_reconfigure
// needs for the PTR_EGPRS_00 variant; the GPRS branch and every other
// EGPRS union arm are unimplemented in the source this is grounded on
// (spec §9 "write_packet_ts_reconfigure ... GPRS branch is a
// zero-initialized stub"). The GPRS branch is
// EncodeTimeslotReconfigureGPRS, which returns core.Unsupported; there
// is no field selecting another EGPRS arm, so only PTR_EGPRS_00 is ever
// encoded.
type TimeslotReconfigureParams struct {
	TFI   uint8
	Poll  bool
	RRBP  uint8
	Alpha uint8
	Gamma uint8
	TA    uint8

	CS         coding.Scheme
	Timeslots  uint8 // bitmask, MSB = TS0
	UsePower   bool
	SlotUSF    [8]uint8 // valid where Timeslots bit is set
	TSC        uint8
	ARFCN      uint16
}

// EncodeTimeslotReconfigure encodes the PTR_EGPRS_00 variant of Packet
// Timeslot Reconfigure (spec §4.B, §9). Callers requesting the GPRS
// variant must use EncodeTimeslotReconfigureGPRS instead, which reports
// core.Unsupported in line with the stubbed source it ports.
func EncodeTimeslotReconfigure(p TimeslotReconfigureParams) ([]byte, error) {
	w := bitbuf.NewWriter(ptrBlockLen)

	poll := uint64(0)
	if p.Poll {
		poll = 1
	}
	if err := w.WriteField(1, 2); err != nil { // Payload Type: control, no optional octets
		return nil, err
	}
	if err := w.WriteField(uint64(p.RRBP), 2); err != nil {
		return nil, err
	}
	if err := w.WriteField(poll, 1); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 3); err != nil { // USF
		return nil, err
	}
	if err := w.WriteField(0x7, 6); err != nil { // message type: PTR
		return nil, err
	}
	if err := w.WriteField(0x3, 2); err != nil { // Page Mode
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // message escape
		return nil, err
	}
	if err := w.WriteField(1, 1); err != nil { // Global_TFI union: DOWNLINK_TFI
		return nil, err
	}
	if err := w.WriteField(uint64(p.TFI), 5); err != nil {
		return nil, err
	}

	if err := w.WriteField(1, 2); err != nil { // union type: EGPRS (01)
		return nil, err
	}
	if err := w.WriteField(0, 4); err != nil { // PTR_EGPRS union: 00 = PTR_EGPRS_00 (2 bits padded to the union's own width)
		return nil, err
	}

	if err := w.WriteField(0, 1); err != nil { // no COMPACT reduced MA
		return nil, err
	}
	codingCmd := uint64(0)
	if p.CS >= coding.MCS1 {
		codingCmd = uint64(p.CS) - uint64(coding.MCS1)
	}
	if err := w.WriteField(codingCmd, 4); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no RESEGMENT
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no DOWNLINK_EGPRS_WindowSize
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no UPLINK_EGPRS_WindowSize
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // LINK_QUALITY_MEASUREMENT_MODE
		return nil, err
	}

	if err := w.WriteField(1, 1); err != nil { // Global_Packet_Timing_Advance.TIMING_ADVANCE_VALUE present
		return nil, err
	}
	if err := w.WriteField(uint64(p.TA), 6); err != nil {
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no UPLINK_TIMING_ADVANCE
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no DOWNLINK_TIMING_ADVANCE
		return nil, err
	}

	if err := w.WriteField(0, 1); err != nil { // no Packet Extended Timing Advance
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // DOWNLINK_RLC_MODE: acknowledged
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // CONTROL_ACK: not a new TBF
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no DOWNLINK_TFI_ASSIGNMENT
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no UPLINK_TFI_ASSIGNMENT
		return nil, err
	}
	if err := w.WriteField(uint64(p.Timeslots), 8); err != nil {
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

	if err := w.WriteField(0, 1); err != nil { // TRDynamic_Allocation union: not fixed allocation
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
	if err := w.WriteField(0, 1); err != nil { // no RLC_DATA_BLOCKS_GRANTED
		return nil, err
	}
	if err := w.WriteField(0, 1); err != nil { // no TBF Starting Time
		return nil, err
	}

	unionBit := uint64(0)
	if p.UsePower {
		unionBit = 1
	}
	if err := w.WriteField(unionBit, 1); err != nil {
		return nil, err
	}
	if p.UsePower {
		if err := w.WriteField(uint64(p.Alpha), 4); err != nil {
			return nil, err
		}
		for ts := 0; ts < 8; ts++ {
			if p.Timeslots&(0x80>>uint(ts)) != 0 {
				if err := w.WriteField(1, 1); err != nil {
					return nil, err
				}
				if err := w.WriteField(uint64(p.SlotUSF[ts]), 3); err != nil {
					return nil, err
				}
				if err := w.WriteField(uint64(p.Gamma), 5); err != nil {
					return nil, err
				}
			} else if err := w.WriteField(0, 1); err != nil {
				return nil, err
			}
		}
	} else {
		for ts := 0; ts < 8; ts++ {
			if p.Timeslots&(0x80>>uint(ts)) != 0 {
				if err := w.WriteField(1, 1); err != nil {
					return nil, err
				}
				if err := w.WriteField(uint64(p.SlotUSF[ts]), 3); err != nil {
					return nil, err
				}
			} else if err := w.WriteField(0, 1); err != nil {
				return nil, err
			}
		}
	}

	w.PadToByte()
	return w.Bytes(), nil
}

// EncodeTimeslotReconfigureGPRS always fails: the source's GPRS branch
// (PTR_GPRS_Struct) is a zero-initialized stub that never populates its
// fields (spec §9 "likely incomplete"), so there is nothing correct to
// port.
func EncodeTimeslotReconfigureGPRS(TimeslotReconfigureParams) ([]byte, error) {
	return nil, core.New(core.Unsupported, "wire.EncodeTimeslotReconfigureGPRS",
		"GPRS Packet Timeslot Reconfigure is unimplemented upstream")
}
