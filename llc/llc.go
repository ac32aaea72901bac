// Package llc implements the GPRS/EGPRS LLC PDU buffer and its
// length-indicator (LI) segmentation/reassembly across RLC data blocks
// (spec §3, §4.D). One Frame holds a single in-flight LLC PDU; a Queue
// holds the frames still waiting to be segmented onto the air
// interface.
package llc

import "github.com/osmo-go/pcu-rlcmac/core"

// MaxLen is the largest LLC PDU this core buffers (TS 44.064 N201-U,
// grounded on the source's LLC_MAX_LEN bound).
const MaxLen = 1543

// Frame is a single LLC PDU buffered for segmentation (downlink) or
// reassembly (uplink), grounded on gprs_llc (test_llc in the
// conformance suite this is grounded on).
type Frame struct {
	data  [MaxLen]byte
	len   int // total bytes currently stored
	index int // bytes already consumed/segmented
}

// Init resets the frame to empty.
func (f *Frame) Init() {
	f.len = 0
	f.index = 0
}

// PutFrame replaces the buffer contents with data and resets the
// consume index.
func (f *Frame) PutFrame(data []byte) error {
	if len(data) > MaxLen {
		return core.New(core.Malformed, "llc.Frame.PutFrame", "LLC PDU exceeds MaxLen")
	}
	copy(f.data[:], data)
	f.len = len(data)
	f.index = 0
	return nil
}

// AppendFrame extends the buffer with more bytes without resetting the
// consume index (used while reassembling a PDU split across blocks).
func (f *Frame) AppendFrame(data []byte) error {
	if f.len+len(data) > MaxLen {
		return core.New(core.Malformed, "llc.Frame.AppendFrame", "LLC PDU exceeds MaxLen")
	}
	copy(f.data[f.len:], data)
	f.len += len(data)
	return nil
}

// FrameLength returns the total number of bytes stored, consumed or
// not.
func (f *Frame) FrameLength() int { return f.len }

// ChunkSize returns the number of unconsumed bytes remaining.
func (f *Frame) ChunkSize() int { return f.len - f.index }

// RemainingSpace returns how many more bytes can be appended before
// MaxLen is reached.
func (f *Frame) RemainingSpace() int { return MaxLen - f.len }

// FitsInCurrentFrame reports whether n more bytes could be appended
// without exceeding MaxLen.
func (f *Frame) FitsInCurrentFrame(n int) bool { return f.RemainingSpace() >= n }

// Consume copies up to n unconsumed bytes out of the frame and advances
// the consume index, returning the bytes actually copied.
func (f *Frame) Consume(n int) []byte {
	if n > f.ChunkSize() {
		n = f.ChunkSize()
	}
	out := make([]byte, n)
	copy(out, f.data[f.index:f.index+n])
	f.index += n
	return out
}

// Bytes returns the unconsumed tail of the frame.
func (f *Frame) Bytes() []byte {
	return f.data[f.index:f.len]
}

// IsComplete reports whether every stored byte has been consumed.
func (f *Frame) IsComplete() bool { return f.index >= f.len }
