package bts

import (
	"testing"

	"github.com/osmo-go/pcu-rlcmac/coding"
	"github.com/osmo-go/pcu-rlcmac/tbf"
)

func testLimits() tbf.Limits {
	return tbf.Limits{N3101Max: 8, N3103Max: 8, N3105Max: 8, T3169: 5, T3191: 5, T3193: 5, T3195: 5}
}

func gprsDataBlock(tfi, bsn uint8, li, payload []byte) []byte {
	raw := []byte{
		0x00,                 // payload type 0 (data), cv 0
		(tfi&0x1f)<<3 | 0x01, // tfi, ti=0, e=1 (single LI octet closes the chain)
		bsn,
	}
	raw = append(raw, li...)
	raw = append(raw, payload...)
	return raw
}

func TestHandlePHDataIndControlMessagePassthrough(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw := []byte{0x40, 0xaa, 0xbb} // payload type 1 (control)
	ev, err := b.HandlePHDataInd(coding.CS1, raw)
	if err != nil {
		t.Fatalf("HandlePHDataInd: %v", err)
	}
	if ev.Kind != InboundControlMessage {
		t.Fatalf("Kind = %v, want InboundControlMessage", ev.Kind)
	}
	if string(ev.Raw) != string(raw) {
		t.Fatalf("Raw = %v, want %v", ev.Raw, raw)
	}
}

func TestHandlePHDataIndUnattachedTFIFails(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw := gprsDataBlock(3, 0, []byte{0x01 << 2}, []byte{0xff})
	if _, err := b.HandlePHDataInd(coding.CS1, raw); err == nil {
		t.Fatal("expected error for unattached tfi")
	}
}

func TestHandlePHDataIndGPRSDataBlockReassembles(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ut := tbf.NewUlTbf(testLimits(), 128, 64)
	b.AttachUlTbf(5, ut)

	payload := []byte{1, 2, 3}
	li := []byte{byte(len(payload))<<2 | 0x00} // length=3, m=0 (last), e bit in header already set
	raw := gprsDataBlock(5, 0, li, payload)

	ev, err := b.HandlePHDataInd(coding.CS1, raw)
	if err != nil {
		t.Fatalf("HandlePHDataInd: %v", err)
	}
	if ev.Kind != InboundDataBlock {
		t.Fatalf("Kind = %v, want InboundDataBlock", ev.Kind)
	}
	if len(ev.Frames) != 1 {
		t.Fatalf("Frames = %d, want 1", len(ev.Frames))
	}
	if string(ev.Frames[0].Data) != string(payload) {
		t.Fatalf("Frames[0].Data = %v, want %v", ev.Frames[0].Data, payload)
	}
	if ev.Frames[0].TFI != 5 {
		t.Fatalf("Frames[0].TFI = %d, want 5", ev.Frames[0].TFI)
	}
	if ut.Window.VQ() != 1 {
		t.Fatalf("VQ = %d, want 1 (bsn 0 received and V(Q) raised past it)", ut.Window.VQ())
	}
}

func TestHandlePHDataIndDuplicateBSNSkipsReassembly(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ut := tbf.NewUlTbf(testLimits(), 128, 64)
	b.AttachUlTbf(5, ut)

	payload := []byte{1, 2, 3}
	li := []byte{byte(len(payload)) << 2}
	raw := gprsDataBlock(5, 0, li, payload)

	if _, err := b.HandlePHDataInd(coding.CS1, raw); err != nil {
		t.Fatalf("first HandlePHDataInd: %v", err)
	}
	ev, err := b.HandlePHDataInd(coding.CS1, raw)
	if err != nil {
		t.Fatalf("second HandlePHDataInd: %v", err)
	}
	if len(ev.Frames) != 0 {
		t.Fatalf("Frames = %d, want 0 for a duplicate bsn", len(ev.Frames))
	}
}

func TestHandlePHDataIndEGPRSDataBlockReassembles(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ut := tbf.NewUlTbf(testLimits(), 128, 64)
	b.AttachUlTbf(7, ut)

	payload := []byte{9, 8, 7, 6}
	// EGPRS header type 3: raw[0] tfi/ti, raw[1]=bsn low byte, raw[2] bsn high bits + e bit (0x40).
	raw := []byte{
		(7&0x1f)<<3 | 0x00, // payload type 0, tfi=7, ti=0
		0,                  // bsn low byte
		0x40,               // bsn high bits = 0, e = 1 (single data block header closes here)
	}
	li := []byte{byte(len(payload))<<1 | 0x01} // length=4, e=1 (terminal LI)
	raw = append(raw, li...)
	raw = append(raw, payload...)

	ev, err := b.HandlePHDataInd(coding.MCS1, raw)
	if err != nil {
		t.Fatalf("HandlePHDataInd: %v", err)
	}
	if len(ev.Frames) != 1 {
		t.Fatalf("Frames = %d, want 1", len(ev.Frames))
	}
	if string(ev.Frames[0].Data) != string(payload) {
		t.Fatalf("Frames[0].Data = %v, want %v", ev.Frames[0].Data, payload)
	}
}

func TestAttachDetachUlTbf(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ut := tbf.NewUlTbf(testLimits(), 128, 64)
	b.AttachUlTbf(2, ut)
	if b.ulByTFI[2] != ut {
		t.Fatal("expected tfi 2 routed to ut")
	}
	b.DetachUlTbf(2)
	if _, ok := b.ulByTFI[2]; ok {
		t.Fatal("expected tfi 2 detached")
	}
}

func TestAttachDetachDlTbf(t *testing.T) {
	b, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dt := tbf.NewDlTbf(testLimits(), 128, 64, coding.CS1)
	b.AttachDlTbf(2, dt)
	if b.dlByTFI[2] != dt {
		t.Fatal("expected tfi 2 routed to dt")
	}
	b.DetachDlTbf(2)
	if _, ok := b.dlByTFI[2]; ok {
		t.Fatal("expected tfi 2 detached")
	}
}
