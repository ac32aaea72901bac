package rlcwindow

import "testing"

func TestDlWindowSendAckMove(t *testing.T) {
	w := NewDlWindow(128, 64)
	var bsns []uint16
	for i := 0; i < 5; i++ {
		bsns = append(bsns, w.IncrementSend())
	}
	if w.VS() != 5 {
		t.Fatalf("VS = %d, want 5", w.VS())
	}
	if w.VA() != 0 {
		t.Fatalf("VA = %d, want 0", w.VA())
	}

	var rbb [64]bool
	for i := 59; i <= 63; i++ {
		rbb[i] = true
	}
	lost, received := w.Update(5, rbb)
	if lost != 0 || received != 5 {
		t.Fatalf("Update: lost=%d received=%d, want 0,5", lost, received)
	}

	moved := w.MoveWindow()
	if moved != 5 {
		t.Fatalf("MoveWindow = %d, want 5", moved)
	}
	if w.VA() != 5 {
		t.Fatalf("VA after move = %d, want 5", w.VA())
	}
}

func TestDlWindowStalled(t *testing.T) {
	w := NewDlWindow(128, 4)
	for i := 0; i < 4; i++ {
		w.IncrementSend()
	}
	if !w.WindowStalled() {
		t.Fatal("window should be stalled once VS-VA reaches WS")
	}
}

func TestDlWindowResendNeeded(t *testing.T) {
	w := NewDlWindow(128, 8)
	for i := 0; i < 3; i++ {
		w.IncrementSend()
	}
	var rbb [64]bool
	rbb[63] = true  // bsn=ssn-1=2, acked
	rbb[62] = false // bsn=1, nacked
	rbb[61] = true  // bsn=0, acked
	w.Update(3, rbb)

	bsn, ok := w.ResendNeeded()
	if !ok || bsn != 1 {
		t.Fatalf("ResendNeeded = %d,%v, want 1,true", bsn, ok)
	}
}

func TestUlWindowReceiveAndRaiseVQ(t *testing.T) {
	w := NewUlWindow(128, 64)
	w.ReceiveBSN(0)
	w.ReceiveBSN(1)
	w.ReceiveBSN(2)
	if w.VR() != 3 {
		t.Fatalf("VR = %d, want 3", w.VR())
	}
	moved := w.RaiseVQ()
	if moved != 3 {
		t.Fatalf("RaiseVQ = %d, want 3", moved)
	}
	if w.VQ() != 3 {
		t.Fatalf("VQ = %d, want 3", w.VQ())
	}
}

func TestUlWindowOutOfOrderGap(t *testing.T) {
	w := NewUlWindow(128, 64)
	w.ReceiveBSN(0)
	w.ReceiveBSN(2) // BSN 1 missing
	if w.VR() != 3 {
		t.Fatalf("VR = %d, want 3", w.VR())
	}
	moved := w.RaiseVQ()
	if moved != 1 {
		t.Fatalf("RaiseVQ = %d, want 1 (stops at the gap)", moved)
	}
	if w.VQ() != 1 {
		t.Fatalf("VQ = %d, want 1", w.VQ())
	}
	w.ReceiveBSN(1)
	moved = w.RaiseVQ()
	if moved != 2 {
		t.Fatalf("RaiseVQ after filling gap = %d, want 2", moved)
	}
}

func TestUlWindowReceiveBlockBitmap(t *testing.T) {
	w := NewUlWindow(128, 64)
	w.ReceiveBSN(0)
	w.ReceiveBSN(2)
	rbb := w.ReceiveBlockBitmap()
	if !rbb[63] {
		t.Fatal("BSN2 (SSN-1) should show as received")
	}
	if rbb[62] {
		t.Fatal("BSN1 should show as not received")
	}
	if !rbb[61] {
		t.Fatal("BSN0 should show as received")
	}
}
