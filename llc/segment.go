package llc

import "github.com/osmo-go/pcu-rlcmac/core"

// AppendResult reports how an Append call left the RLC data block (spec
// §4.D), grounded on Encoding::AppendResult.
type AppendResult uint8

const (
	// NeedMoreBlocks means the frame did not fit; the caller must
	// schedule another block to continue it.
	NeedMoreBlocks AppendResult = iota
	// CompletedBlockFilled means the frame (or its final segment)
	// exactly filled the remaining space.
	CompletedBlockFilled
	// CompletedSpaceLeft means the frame completed and space remains
	// for another queued frame.
	CompletedSpaceLeft
)

// fillerLI is the EGPRS filler length-indicator value (TS 44.060
// §10.4.14, spec §4.D).
const fillerLI = 127

// Chunk is one length-indicator-delimited run of LLC bytes the receiver
// walked out of an RLC data block (spec §4.D rlc_data_from_ul_data).
type Chunk struct {
	Offset     int
	Length     int
	IsComplete bool // frame ends exactly at this chunk (e=1 closed it)
}

// Builder accumulates the LI octets and payload for one RLC data block
// as frames are appended to it.
type Builder struct {
	space   int // remaining payload space in the block
	li      []byte
	payload []byte
	// openLI tracks the index of the most recently appended LI whose
	// e bit is still open (EGPRS chains LIs by clearing the previous
	// entry's e bit when another one follows).
	openLI int
}

// NewBuilder starts a block with space bytes of payload capacity.
func NewBuilder(space int) *Builder {
	return &Builder{space: space, openLI: -1}
}

// LIBytes returns the length-indicator octets emitted so far.
func (b *Builder) LIBytes() []byte { return b.li }

// Payload returns the data bytes emitted so far.
func (b *Builder) Payload() []byte { return b.payload }

// Remaining reports the unused payload space left in the block.
func (b *Builder) Remaining() int { return b.space }

func gprsLI(length int, m, e bool) byte {
	v := byte(length<<2) & 0xfc
	if m {
		v |= 0x02
	}
	if e {
		v |= 0x01
	}
	return v
}

// AppendGPRS feeds one queued frame's unconsumed bytes into the block
// under GPRS LI semantics (spec §4.D GPRS dialect). moreQueued reports
// whether another frame is waiting behind this one.
func (b *Builder) AppendGPRS(f *Frame, moreQueued bool) AppendResult {
	chunk := f.ChunkSize()

	if chunk > b.space {
		// Larger than space: consume only what fits, no LI for this
		// boundary (it isn't one); close the previous LI's e bit if
		// there was one.
		data := f.Consume(b.space)
		b.payload = append(b.payload, data...)
		if b.openLI >= 0 {
			b.li[b.openLI] |= 0x01
			b.openLI = -1
		}
		b.space = 0
		return NeedMoreBlocks
	}

	if chunk == b.space {
		data := f.Consume(chunk)
		b.payload = append(b.payload, data...)
		b.space = 0
		if f.IsComplete() && !moreQueued {
			return CompletedBlockFilled
		}
		if f.IsComplete() {
			// Exact fit, not final: insert a zero-length LI so the
			// next frame starts at offset 0 of the next block.
			b.li = append(b.li, gprsLI(0, false, true))
			b.openLI = -1
			return NeedMoreBlocks
		}
		// Mid-frame exact fit shouldn't arise for GPRS's single
		// chunk-per-frame model; it returns NeedMoreBlocks without
		// adding an LI.
		return NeedMoreBlocks
	}

	// Shorter than space: delimit with a positive LI, tentatively
	// closing it (e=1); a later LI in this same header reopens it by
	// clearing this entry's e bit, same as the EGPRS chain below.
	data := f.Consume(chunk)
	b.payload = append(b.payload, data...)
	b.space -= chunk
	idx := len(b.li)
	b.li = append(b.li, gprsLI(chunk, moreQueued, true))
	if b.openLI >= 0 {
		b.li[b.openLI] &^= 0x01
	}
	b.openLI = idx
	if b.space > 0 && moreQueued {
		return CompletedSpaceLeft
	}
	return CompletedBlockFilled
}

// AppendEGPRS feeds one queued frame's unconsumed bytes into the block
// under EGPRS LI semantics (spec §4.D EGPRS dialect).
func (b *Builder) AppendEGPRS(f *Frame, moreQueued bool) AppendResult {
	chunk := f.ChunkSize()

	if chunk > b.space {
		data := f.Consume(b.space)
		b.payload = append(b.payload, data...)
		if b.openLI >= 0 {
			b.li[b.openLI] &^= 0x01
			b.openLI = -1
		}
		b.space = 0
		return NeedMoreBlocks
	}

	if chunk == b.space {
		data := f.Consume(chunk)
		b.payload = append(b.payload, data...)
		b.space = 0
		if f.IsComplete() && !moreQueued {
			return CompletedBlockFilled
		}
		// Exact fit, not final: no LI emitted here; deferred to the
		// block that starts the next frame.
		return NeedMoreBlocks
	}

	data := f.Consume(chunk)
	b.payload = append(b.payload, data...)
	b.space -= chunk
	idx := len(b.li)
	b.li = append(b.li, byte(chunk<<1)|0x01)
	if b.openLI >= 0 {
		b.li[b.openLI] &^= 0x01
	}
	b.openLI = idx

	if f.IsComplete() && !moreQueued && b.space > 0 {
		b.li[b.openLI] &^= 0x01
		b.li = append(b.li, byte(fillerLI<<1)|0x01)
		b.openLI = -1
		b.space = 0
		return CompletedBlockFilled
	}
	if b.space > 0 && moreQueued {
		return CompletedSpaceLeft
	}
	return CompletedBlockFilled
}

// SplitLIChainGPRS walks body from the front, collecting GPRS-dialect
// LI octets until one with m=0 (no more LI octets) or the filler
// value closes the chain, then returns the remaining bytes as
// payload. This is the receive-side counterpart of the caller's own
// bookkeeping during AppendGPRS: the block carries no explicit count
// of LI octets, so the chain length is only known by walking it.
func SplitLIChainGPRS(body []byte) (li, payload []byte) {
	i := 0
	for i < len(body) {
		b := body[i]
		i++
		length := int(b>>2) & 0x3f
		m := b&0x02 != 0
		if length == fillerLI || !m {
			break
		}
	}
	return body[:i], body[i:]
}

// SplitLIChainEGPRS is SplitLIChainGPRS's EGPRS-dialect counterpart:
// the chain continues while e=0, since the encoder closes the chain
// by leaving the last-written LI's e bit set to 1.
func SplitLIChainEGPRS(body []byte) (li, payload []byte) {
	i := 0
	for i < len(body) {
		b := body[i]
		i++
		length := int(b >> 1)
		e := b&0x01 != 0
		if length == fillerLI || e {
			break
		}
	}
	return body[:i], body[i:]
}

// Reassemble walks GPRS-style LI octets against payload, returning the
// chunks delimited by them (spec §4.D rlc_data_from_ul_data). A
// truncated LI chain (an LI claiming more payload than remains) is
// Malformed.
func Reassemble(li, payload []byte) ([]Chunk, error) {
	const op = "llc.Reassemble"
	var chunks []Chunk
	offset := 0
	for _, b := range li {
		length := int(b>>2) & 0x3f
		m := b&0x02 != 0
		e := b&0x01 != 0

		if length == fillerLI {
			break
		}
		if offset+length > len(payload) {
			return nil, core.New(core.Malformed, op, "LI chain overruns payload")
		}
		chunks = append(chunks, Chunk{Offset: offset, Length: length, IsComplete: true})
		offset += length
		if !m && e {
			break
		}
	}
	if offset < len(payload) {
		chunks = append(chunks, Chunk{Offset: offset, Length: len(payload) - offset, IsComplete: len(li) == 0})
	}
	return chunks, nil
}

// ReassembleEGPRS walks EGPRS-style LI octets against payload (spec
// §4.D rlc_data_from_ul_data, EGPRS dialect): a 7-bit length in bits
// 7-1 and a single e bit in bit 0, with no m bit — the mirror of
// AppendEGPRS's `byte(chunk<<1)|0x01` encoding, not Reassemble's GPRS
// layout. e=1 marks the last LI octet in the chain; a chained LI that
// is later followed by another has its e bit cleared by the encoder,
// so e=0 here means "another LI follows".
func ReassembleEGPRS(li, payload []byte) ([]Chunk, error) {
	const op = "llc.ReassembleEGPRS"
	var chunks []Chunk
	offset := 0
	for _, b := range li {
		length := int(b >> 1)
		e := b&0x01 != 0

		if length == fillerLI {
			break
		}
		if offset+length > len(payload) {
			return nil, core.New(core.Malformed, op, "LI chain overruns payload")
		}
		chunks = append(chunks, Chunk{Offset: offset, Length: length, IsComplete: true})
		offset += length
		if e {
			break
		}
	}
	if offset < len(payload) {
		chunks = append(chunks, Chunk{Offset: offset, Length: len(payload) - offset, IsComplete: len(li) == 0})
	}
	return chunks, nil
}
