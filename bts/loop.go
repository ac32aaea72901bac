package bts

import (
	"context"

	"go.uber.org/zap"

	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/sched"
)

// PHDataInd is one inbound radio block delivery from L1 (spec §6 "L1
// primitives consumed": PH-DATA.ind(trx, ts, fn, bits, length)).
type PHDataInd struct {
	TRX, TS int
	FN      uint32
	CS      coding.Scheme
	Raw     []byte
}

// PHRTSInd is one outbound transmission opportunity from L1
// (PH-RTS.ind(trx, ts, fn, block_nr)).
type PHRTSInd struct {
	TRX, TS, BlockNr int
	FN               uint32
}

// PHDataReq is one outbound radio block handed back to L1
// (PH-DATA.req(trx, ts, fn, bits, length)).
type PHDataReq struct {
	TRX, TS int
	FN      uint32
	Raw     []byte
}

// Run is the single-threaded cooperative main loop spec §5 describes:
// it serializes PH-DATA.ind deliveries and PH-RTS.ind opportunities
// (timer expiration is driven by the caller invoking Tick, not a
// third channel here, since FN-deadlines are compared against the FN
// already carried by every inbound event). Framing the radio
// transport itself, turning L1 bursts into these channels, is
// explicitly out of scope (spec "Out of scope: ... the L1 primitive
// transport to the BTS"); Run only consumes whatever already arrives
// on ind/rts and stops when ctx is done.
func (b *Bts) Run(ctx context.Context, ind <-chan PHDataInd, rts <-chan PHRTSInd, req chan<- PHDataReq, m *sched.Metrics, pending sched.PendingPayload) {
	for {
		select {
		case <-ctx.Done():
			return

		case in, ok := <-ind:
			if !ok {
				return
			}
			ev, err := b.HandlePHDataInd(in.CS, in.Raw)
			if err != nil {
				b.Log.Debug("PH-DATA.ind dropped", zap.Int("trx", in.TRX), zap.Int("ts", in.TS), zap.Error(err))
				continue
			}
			switch ev.Kind {
			case InboundControlMessage:
				b.Log.Debug("inbound control message", zap.Int("trx", in.TRX), zap.Int("ts", in.TS), zap.Int("len", len(ev.Raw)))
			case InboundDataBlock:
				for _, f := range ev.Frames {
					b.Log.Debug("LLC frame reassembled", zap.Uint8("tfi", f.TFI), zap.Int("len", len(f.Data)))
				}
			}

		case r, ok := <-rts:
			if !ok {
				return
			}
			pdch := b.pdch(r.TRX, r.TS)
			if pdch == nil {
				continue
			}
			d := sched.PickRTS(r.FN, pdch.UlTBFs, pdch.DlTBFs, pdch.Ctrl, m, pending)
			if d.Kind == sched.NoMessage {
				continue
			}
			select {
			case req <- PHDataReq{TRX: r.TRX, TS: r.TS, FN: r.FN, Raw: d.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// pdch looks up the Pdch occupying (trx, ts), or nil if out of range
// or not yet added.
func (b *Bts) pdch(trx, ts int) *Pdch {
	if trx < 0 || trx >= len(b.Trxs) {
		return nil
	}
	t := b.Trxs[trx]
	if ts < 0 || ts >= len(t.Pdchs) {
		return nil
	}
	return t.Pdchs[ts]
}
