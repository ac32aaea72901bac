package bts

import (
	"go.uber.org/zap"

	"github.com/osmo-go/pcu-rlcmac/alloc"
	"github.com/osmo-go/pcu-rlcmac/msreg"
	"github.com/osmo-go/pcu-rlcmac/tbf"
)

// Pdch is one packet data channel on a Trx: the allocator's view
// (TFI/USF bookkeeping) plus the TFI round-robin hints spec.md's
// supplemented features add (next_ul_tfi/next_dl_tfi, gprs_rlcmac.h).
type Pdch struct {
	*alloc.Pdch
	nextULTFI, nextDLTFI uint8

	// Ctrl, UlTBFs, and DlTBFs are this PDCH's per-tick scheduler
	// inputs (spec §4.H): the pending control-message queue and the
	// TBFs currently occupying this timeslot.
	Ctrl   *CtrlQueue
	UlTBFs []*tbf.UlTbf
	DlTBFs []*tbf.DlTbf
}

// NewPdch builds an enabled PDCH at (trx, ts).
func NewPdch(trx, ts int) *Pdch {
	return &Pdch{Pdch: alloc.NewPdch(trx, ts), Ctrl: &CtrlQueue{}}
}

// CtrlQueue is a FIFO of pending control-message bytes for one PDCH,
// implementing sched.ControlQueue.
type CtrlQueue struct{ msgs [][]byte }

// Peek implements sched.ControlQueue.
func (q *CtrlQueue) Peek() ([]byte, bool) {
	if len(q.msgs) == 0 {
		return nil, false
	}
	return q.msgs[0], true
}

// Pop implements sched.ControlQueue.
func (q *CtrlQueue) Pop() ([]byte, bool) {
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}

// Push enqueues a control message (an assignment, an ack) for the
// next RTS opportunity on this PDCH.
func (q *CtrlQueue) Push(msg []byte) { q.msgs = append(q.msgs, msg) }

// Trx is one transceiver, owning a fixed set of timeslots.
type Trx struct {
	ARFCN int
	Pdchs [8]*Pdch
}

// NewTrx builds a Trx with all eight timeslots present but disabled;
// callers enable the ones carrying PDCH traffic.
func NewTrx(arfcn int) *Trx {
	t := &Trx{ARFCN: arfcn}
	for ts := 0; ts < 8; ts++ {
		p := NewPdch(0, ts)
		p.Enabled = false
		t.Pdchs[ts] = p
	}
	return t
}

// allocPdchs flattens every PDCH, enabled or not, across every Trx into
// the slice alloc.AlgorithmA/B expect, in TRX-then-TS order; the
// allocators skip the disabled ones.
func (b *Bts) allocPdchs() []*alloc.Pdch {
	var out []*alloc.Pdch
	for trxIdx, trx := range b.Trxs {
		for _, p := range trx.Pdchs {
			if p == nil {
				continue
			}
			p.TRX = trxIdx
			out = append(out, p.Pdch)
		}
	}
	return out
}

// Bts is a running PCU instance: the MS registry, the TRX/PDCH
// topology, and the configuration that governs allocation and TBF
// timers. There is no package-global state; every dependency a
// component needs (logger, config, registry) is passed to it
// explicitly, mirroring part5's "no global logger" design.
type Bts struct {
	Config   Config
	Log      *zap.Logger
	Registry *msreg.Registry
	Trxs     []*Trx

	// ulByTFI/dlByTFI route an inbound PH-DATA.ind's TFI field to the
	// TBF occupying it, independent of the MS registry's TLLI keying
	// (a freshly-assigned uplink TBF may still be in contention
	// resolution with no confirmed TLLI at all).
	ulByTFI map[uint8]*tbf.UlTbf
	dlByTFI map[uint8]*tbf.DlTbf
}

// New builds a Bts. A nil logger defaults to zap.NewNop(), the same
// "silent unless told otherwise" default part5's CmdLog/delegate
// pattern uses.
func New(cfg Config, log *zap.Logger) (*Bts, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bts{
		Config:   cfg,
		Log:      log,
		Registry: msreg.NewRegistry(),
	}, nil
}

// AddTrx appends a Trx to the topology.
func (b *Bts) AddTrx(trx *Trx) {
	b.Trxs = append(b.Trxs, trx)
}

// AllocateUplink runs the configured allocator for a fresh uplink
// TBF, logging the outcome at debug level (spec §4.G).
func (b *Bts) AllocateUplink(class int, singleSlot bool) (alloc.Result, error) {
	pdchs := b.allocPdchs()
	var res alloc.Result
	var err error
	switch b.Config.AllocAlgorithm {
	case AlgorithmB:
		res, err = alloc.AlgorithmB(pdchs, alloc.Uplink, class, singleSlot, -1)
	default:
		res, err = alloc.AlgorithmA(pdchs, alloc.Uplink)
	}
	if err != nil {
		b.Log.Debug("uplink allocation failed", zap.Error(err))
		return alloc.Result{}, err
	}
	b.Log.Debug("uplink allocated", zap.Uint8("tfi", res.TFI), zap.Int("first_common_ts", res.FirstCommonTS))
	return res, nil
}

// AllocateDownlink runs the configured allocator for a fresh downlink
// TBF. existingCommonTS pins first_common_ts to an already-allocated
// opposite-direction TBF for the same MS (spec §4.G cross-direction
// invariant); pass -1 when there is none.
func (b *Bts) AllocateDownlink(class int, singleSlot bool, existingCommonTS int) (alloc.Result, error) {
	pdchs := b.allocPdchs()
	var res alloc.Result
	var err error
	switch b.Config.AllocAlgorithm {
	case AlgorithmB:
		res, err = alloc.AlgorithmB(pdchs, alloc.Downlink, class, singleSlot, existingCommonTS)
	default:
		res, err = alloc.AlgorithmA(pdchs, alloc.Downlink)
	}
	if err != nil {
		b.Log.Debug("downlink allocation failed", zap.Error(err))
		return alloc.Result{}, err
	}
	b.Log.Debug("downlink allocated", zap.Uint8("tfi", res.TFI), zap.Int("first_common_ts", res.FirstCommonTS))
	return res, nil
}

// Close tears down every tracked MS (spec "Supplemented features":
// GprsMsStorage's destructor force-idles everything).
func (b *Bts) Close() error {
	b.Registry.Close()
	b.ulByTFI = nil
	b.dlByTFI = nil
	return nil
}
