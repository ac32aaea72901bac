package bts

import (
	"go.uber.org/zap"

	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/core"
	"github.com/osmo-go/pcu-rlcmac/llc"
	"github.com/osmo-go/pcu-rlcmac/tbf"
	"github.com/osmo-go/pcu-rlcmac/wire"
)

// AttachUlTbf records t as the uplink TBF currently holding tfi, so a
// later PH-DATA.ind carrying that TFI routes to it.
func (b *Bts) AttachUlTbf(tfi uint8, t *tbf.UlTbf) {
	if b.ulByTFI == nil {
		b.ulByTFI = make(map[uint8]*tbf.UlTbf)
	}
	b.ulByTFI[tfi] = t
}

// DetachUlTbf removes the uplink TFI routing entry, mirroring the
// allocator freeing the TFI on RELEASING (spec §4.E).
func (b *Bts) DetachUlTbf(tfi uint8) { delete(b.ulByTFI, tfi) }

// AttachDlTbf records t as the downlink TBF currently holding tfi.
func (b *Bts) AttachDlTbf(tfi uint8, t *tbf.DlTbf) {
	if b.dlByTFI == nil {
		b.dlByTFI = make(map[uint8]*tbf.DlTbf)
	}
	b.dlByTFI[tfi] = t
}

// DetachDlTbf removes the downlink TFI routing entry.
func (b *Bts) DetachDlTbf(tfi uint8) { delete(b.dlByTFI, tfi) }

// InboundKind distinguishes what one PH-DATA.ind resolved to (spec
// §2 "goes through (B) to produce either a parsed control message ...
// or an RLC data block").
type InboundKind uint8

const (
	InboundDataBlock InboundKind = iota
	InboundControlMessage
)

// ReassembledFrame is one complete LLC PDU recovered from a chain of
// uplink RLC data blocks feeding the same uplink TBF (spec §4.D
// rlc_data_from_ul_data).
type ReassembledFrame struct {
	TFI  uint8
	Data []byte
}

// InboundEvent is what HandlePHDataInd resolved one radio block to.
type InboundEvent struct {
	Kind InboundKind
	// Raw is the undecoded block, set when Kind == InboundControlMessage;
	// interpreting which control message it is and dispatching it to
	// the right tbf.Header transition is the caller's job (spec §2
	// "dispatched to E"), since that dispatch depends on the message
	// type field this package doesn't decode.
	Raw []byte
	// Frames holds every LLC PDU this block completed; usually 0 or 1,
	// occasionally more when several short frames shared one block.
	Frames []ReassembledFrame
}

// HandlePHDataInd decodes one inbound radio block: a non-data payload
// type is handed back undecoded for dispatch to the TBF state
// machine; an RLC data block is routed by TFI to its uplink TBF,
// pushed through the uplink window, and walked back into complete LLC
// frames through the LI chain (spec §2 data flow, §4.C, §4.D).
func (b *Bts) HandlePHDataInd(cs coding.Scheme, raw []byte) (InboundEvent, error) {
	const op = "bts.Bts.HandlePHDataInd"

	pt, err := wire.DecodePayloadType(raw)
	if err != nil {
		return InboundEvent{}, err
	}
	if pt != wire.PayloadData {
		return InboundEvent{Kind: InboundControlMessage, Raw: raw}, nil
	}

	hdr, bitOffset, err := wire.DecodeUlDataHeader(cs, raw)
	if err != nil {
		return InboundEvent{}, err
	}

	ut, ok := b.ulByTFI[hdr.TFI]
	if !ok {
		return InboundEvent{}, core.New(core.Malformed, op, "no uplink TBF attached for tfi")
	}

	isNew := ut.Window.ReceiveBSN(hdr.BSN)
	moved := ut.Window.RaiseVQ()
	b.Log.Debug("uplink data block received",
		zap.Uint8("tfi", hdr.TFI), zap.Uint16("bsn", hdr.BSN),
		zap.Bool("new", isNew), zap.Int("vq_advanced", moved))
	if !isNew {
		return InboundEvent{Kind: InboundDataBlock}, nil
	}

	body := raw[bitOffset/8:]
	egprs := cs.HeaderType() != coding.HeaderGPRSData

	var li, payload []byte
	var chunks []llc.Chunk
	if egprs {
		li, payload = llc.SplitLIChainEGPRS(body)
		chunks, err = llc.ReassembleEGPRS(li, payload)
	} else {
		li, payload = llc.SplitLIChainGPRS(body)
		chunks, err = llc.Reassemble(li, payload)
	}
	if err != nil {
		return InboundEvent{}, err
	}

	ev := InboundEvent{Kind: InboundDataBlock}
	for _, c := range chunks {
		ut.Partial = append(ut.Partial, payload[c.Offset:c.Offset+c.Length]...)
		if c.IsComplete {
			ev.Frames = append(ev.Frames, ReassembledFrame{TFI: hdr.TFI, Data: ut.Partial})
			ut.Partial = nil
		}
	}
	return ev, nil
}
