package bts

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/sched"
)

func newTestBts(t *testing.T) *Bts {
	t.Helper()
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	trx := NewTrx(100)
	trx.Pdchs[0].Enabled = true
	b.AddTrx(trx)
	return b
}

func TestRunDispatchesControlMessageFromRTS(t *testing.T) {
	b := newTestBts(t)
	pdch := b.Trxs[0].Pdchs[0]
	pdch.Ctrl.Push([]byte{0xca, 0xfe})

	ctx, cancel := context.WithCancel(context.Background())
	ind := make(chan PHDataInd)
	rts := make(chan PHRTSInd)
	req := make(chan PHDataReq, 1)
	metrics := sched.NewMetrics(prometheus.NewRegistry())

	done := make(chan struct{})
	go func() {
		b.Run(ctx, ind, rts, req, metrics, nil)
		close(done)
	}()

	rts <- PHRTSInd{TRX: 0, TS: 0, FN: 7}

	select {
	case out := <-req:
		if string(out.Raw) != "\xca\xfe" {
			t.Fatalf("Raw = %v, want control message bytes", out.Raw)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for PH-DATA.req")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after ctx cancellation")
	}
}

func TestRunHandlesInboundDataBlockWithoutBlocking(t *testing.T) {
	b := newTestBts(t)

	ctx, cancel := context.WithCancel(context.Background())
	ind := make(chan PHDataInd)
	rts := make(chan PHRTSInd)
	req := make(chan PHDataReq)
	metrics := sched.NewMetrics(prometheus.NewRegistry())

	done := make(chan struct{})
	go func() {
		b.Run(ctx, ind, rts, req, metrics, nil)
		close(done)
	}()

	// No uplink TBF is attached, so HandlePHDataInd returns an error
	// that Run must log and swallow rather than block on.
	ind <- PHDataInd{TRX: 0, TS: 0, FN: 3, CS: coding.CS1, Raw: gprsDataBlock(1, 0, []byte{3 << 2}, []byte{1, 2, 3})}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after ctx cancellation")
	}
}

func TestRunExitsOnClosedIndChannel(t *testing.T) {
	b := newTestBts(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ind := make(chan PHDataInd)
	rts := make(chan PHRTSInd)
	req := make(chan PHDataReq)
	metrics := sched.NewMetrics(prometheus.NewRegistry())

	done := make(chan struct{})
	go func() {
		b.Run(ctx, ind, rts, req, metrics, nil)
		close(done)
	}()

	close(ind)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after ind channel closed")
	}
}

func TestPdchLookupOutOfRange(t *testing.T) {
	b := newTestBts(t)
	if b.pdch(-1, 0) != nil {
		t.Fatal("expected nil for negative trx")
	}
	if b.pdch(5, 0) != nil {
		t.Fatal("expected nil for out-of-range trx")
	}
	if b.pdch(0, 9) != nil {
		t.Fatal("expected nil for out-of-range ts")
	}
	if b.pdch(0, 0) == nil {
		t.Fatal("expected a pdch at (0, 0)")
	}
}
