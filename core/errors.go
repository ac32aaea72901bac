// Package core holds the error taxonomy shared by every RLC/MAC component.
//
// See spec §7 for the propagation policy: Malformed and Timeout are
// recovered locally, Unsupported and Busy are surfaced to the immediate
// caller, NoResources is surfaced to the assignment layer, and
// InternalFraming aborts a single encode without touching process state.
package core

import (
	"fmt"
)

// Kind classifies a core error for errors.Is comparisons.
type Kind uint8

const (
	_ Kind = iota

	// Malformed signals a received bitstream failed CSN.1 or LI-chain
	// validation. The block is dropped; no TBF state changes.
	Malformed

	// Unsupported signals a valid message selecting a variant this
	// implementation does not emit or decode.
	Unsupported

	// NoResources signals the allocator cannot satisfy a request.
	NoResources

	// Busy signals the MS already has an active TBF in the requested
	// direction in a non-terminal state.
	Busy

	// Timeout signals a poll or T-timer expired.
	Timeout

	// InternalFraming signals an assertion failure in the bit packer,
	// e.g. a pre-rest block that isn't octet-aligned.
	InternalFraming
)

// String names the Kind.
func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Unsupported:
		return "unsupported"
	case NoResources:
		return "no-resources"
	case Busy:
		return "busy"
	case Timeout:
		return "timeout"
	case InternalFraming:
		return "internal-framing"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is a Kind carrying free-form context, the one error type every
// package in this module returns for taxonomy failures.
type Error struct {
	Kind Kind
	Op   string // component/operation that raised it, e.g. "wire.EncodeIA"
	Msg  string // human-readable detail
}

// Error implements the builtin error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

// Is reports whether target is the Sentinel for the same Kind, so callers
// can write errors.Is(err, core.Sentinel(core.NoResources)).
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && e.Kind == Kind(k)
}

// kindSentinel lets a bare Kind act as an errors.Is target.
type kindSentinel Kind

func (k kindSentinel) Error() string { return Kind(k).String() }

// New builds an *Error. Kind values are not usable directly as errors.Is
// targets since Kind doesn't implement error; wrap with Sentinel for that.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Sentinel adapts a bare Kind into an error for use with errors.Is, e.g.
// errors.Is(err, core.Sentinel(core.Busy)).
func Sentinel(k Kind) error { return kindSentinel(k) }
