package wire

import (
	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/internal/bitbuf"
	"github.com/osmo-go/pcu-rlcmac/rlcwindow"
)

// puanBlockLen is the capacity of a Packet Uplink Ack/Nack control
// block (one radio block, spec §4.A).
const puanBlockLen = 23

// UplinkAckParams carries every field write_packet_uplink_ack needs
// (spec §4.B "(d) Packet Uplink Ack/Nack").
type UplinkAckParams struct {
	TFI      uint8
	IsFinal  bool
	RRBP     uint8
	CS       coding.Scheme
	EGPRS    bool
	TLLI     uint32
	Window   *rlcwindow.UlWindow
}

func encodeAckNackDescGPRS(w *bitbuf.Writer, win *rlcwindow.UlWindow, isFinal bool) error {
	final := uint64(0)
	if isFinal {
		final = 1
	}
	if err := w.WriteField(final, 1); err != nil { // FINAL_ACK_INDICATION
		return err
	}
	if err := w.WriteField(uint64(win.SSN()), 7); err != nil { // STARTING_SEQUENCE_NUMBER
		return err
	}
	rbb := win.ReceiveBlockBitmap()
	for i := 0; i < 64; i++ {
		bit := uint64(0)
		if rbb[i] {
			bit = 1
		}
		if err := w.WriteField(bit, 1); err != nil {
			return err
		}
	}
	return nil
}

func writePacketUplinkAckGPRS(w *bitbuf.Writer, p UplinkAckParams) error {
	codingCmd := uint64(0)
	if p.CS >= coding.CS1 {
		codingCmd = uint64(p.CS) - uint64(coding.CS1)
	}
	if err := w.WriteField(codingCmd, 2); err != nil { // CHANNEL_CODING_COMMAND
		return err
	}
	if err := encodeAckNackDescGPRS(w, p.Window, p.IsFinal); err != nil {
		return err
	}
	if err := w.WriteField(1, 1); err != nil { // have CONTENTION_RESOLUTION_TLLI
		return err
	}
	if err := w.WriteField(uint64(p.TLLI), 32); err != nil {
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Packet Timing Advance
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Power Control Parameters
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Extension Bits
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // fixed 0
		return err
	}
	if err := w.WriteField(1, 1); err != nil { // AdditionsR99 present
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Packet Extended Timing Advance
		return err
	}
	if err := w.WriteField(1, 1); err != nil { // TBF_EST
		return err
	}
	return w.WriteField(0, 1) // no REL 5
}

// ackNackDescEGPRS encodes the EGPRS Ack/Nack Description IE (spec §4.A
// compressed RLC bitmap). It never emits a CRBB; only the uncompressed
// bitmap is written.
func ackNackDescEGPRS(w *bitbuf.Writer, win *rlcwindow.UlWindow, isFinal bool, restBits int) error {
	ssn := win.Mod(win.VQ() + 1)
	numBlocks := win.Mod(win.VR() - win.VQ())
	if numBlocks > 0 {
		numBlocks--
	}
	if numBlocks > int(win.WS()) {
		numBlocks = int(win.WS())
	}

	bow := true
	eow := true
	urbbLen := numBlocks
	if numBlocks > restBits {
		eow = false
		urbbLen = restBits
	} else if numBlocks > restBits-9 {
		eow = false
		urbbLen = restBits - 9
	}

	haveLength := urbbLen != restBits
	if !haveLength {
		if err := w.WriteField(0, 1); err != nil {
			return err
		}
	} else {
		length := urbbLen + 15
		if err := w.WriteField(1, 1); err != nil {
			return err
		}
		if err := w.WriteField(uint64(length), 8); err != nil {
			return err
		}
	}

	final := uint64(0)
	if isFinal {
		final = 1
	}
	if err := w.WriteField(final, 1); err != nil {
		return err
	}
	bowBit := uint64(0)
	if bow {
		bowBit = 1
	}
	if err := w.WriteField(bowBit, 1); err != nil {
		return err
	}
	eowBit := uint64(0)
	if eow {
		eowBit = 1
	}
	if err := w.WriteField(eowBit, 1); err != nil {
		return err
	}
	if err := w.WriteField(uint64(ssn), 11); err != nil {
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no CRBB: compressed bitmap unsupported
		return err
	}

	esnCRBB := win.Mod(ssn - 1)
	for i := urbbLen; i > 0; i-- {
		ack := win.IsReceived(win.Mod(esnCRBB + i))
		bit := uint64(0)
		if ack {
			bit = 1
		}
		if err := w.WriteField(bit, 1); err != nil {
			return err
		}
	}
	return nil
}

func writePacketUplinkAckEGPRS(w *bitbuf.Writer, p UplinkAckParams) error {
	if err := w.WriteField(0, 2); err != nil { // fixed 00
		return err
	}
	if err := w.WriteField(2, 4); err != nil { // CHANNEL_CODING_COMMAND: MCS-3, matching the source's hardcoded value
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no RESEGMENT
		return err
	}
	if err := w.WriteField(1, 1); err != nil { // PRE_EMPTIVE_TRANSMISSION
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no PRR_RETRANSMISSION_REQUEST
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no ARAC_RETRANSMISSION_REQUEST
		return err
	}
	if err := w.WriteField(1, 1); err != nil { // have CONTENTION_RESOLUTION_TLLI
		return err
	}
	if err := w.WriteField(uint64(p.TLLI), 32); err != nil {
		return err
	}
	if err := w.WriteField(1, 1); err != nil { // TBF_EST
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Packet Timing Advance
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Packet Extended Timing Advance
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Power Control Parameters
		return err
	}
	if err := w.WriteField(0, 1); err != nil { // no Extension Bits
		return err
	}

	restBits := puanBlockLen*8 - w.BitPos()
	if err := ackNackDescEGPRS(w, p.Window, p.IsFinal, restBits); err != nil {
		return err
	}

	if err := w.WriteField(0, 1); err != nil { // fixed 0
		return err
	}
	return w.WriteField(0, 1) // no REL 5
}

// EncodeUplinkAck encodes a Packet Uplink Ack/Nack control block (spec
// §4.B, round-trip law R4).
func EncodeUplinkAck(p UplinkAckParams) ([]byte, error) {
	w := bitbuf.NewWriter(puanBlockLen)

	final := uint64(0)
	if p.IsFinal {
		final = 1
	}
	if err := w.WriteField(1, 2); err != nil { // Payload Type
		return nil, err
	}
	if err := w.WriteField(uint64(p.RRBP), 2); err != nil {
		return nil, err
	}
	if err := w.WriteField(final, 1); err != nil { // Suppl/Polling Bit
		return nil, err
	}
	if err := w.WriteField(0, 3); err != nil { // Uplink state flag
		return nil, err
	}
	if err := w.WriteField(0x9, 6); err != nil { // message type
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // Page Mode
		return nil, err
	}
	if err := w.WriteField(0, 2); err != nil { // fixed 00
		return nil, err
	}
	if err := w.WriteField(uint64(p.TFI), 5); err != nil {
		return nil, err
	}

	if p.EGPRS {
		if err := w.WriteField(1, 1); err != nil {
			return nil, err
		}
		if err := writePacketUplinkAckEGPRS(w, p); err != nil {
			return nil, err
		}
	} else {
		if err := w.WriteField(0, 1); err != nil {
			return nil, err
		}
		if err := writePacketUplinkAckGPRS(w, p); err != nil {
			return nil, err
		}
	}

	w.PadToByte()
	return w.Bytes(), nil
}
