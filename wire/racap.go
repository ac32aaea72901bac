package wire

import (
	"github.com/osmo-go/pcu-rlcmac/core"
	"github.com/osmo-go/pcu-rlcmac/internal/bitbuf"
)

// MSRadioAccessCap is the decoded subset of MS Radio Access Capability
// this core consumes for multislot allocation (spec §4.B, §4.F). Per
// spec §9 Open Questions, only decoded-value equality is asserted by
// tests; the full access-technology list is not modelled.
type MSRadioAccessCap struct {
	MultislotClass uint8
	EGPRSSupported bool
	EGPRSMultislotClass uint8
}

// DecodeMSRadioAccessCap decodes the single most common access
// technology entry (GERAN) of an MS RA Capability IE. A length
// indicator that would overrun buf is Malformed (spec §8 B4): the
// registry the caller is updating must not be mutated on error.
func DecodeMSRadioAccessCap(buf []byte) (MSRadioAccessCap, error) {
	const op = "wire.DecodeMSRadioAccessCap"
	var cap MSRadioAccessCap
	if len(buf) == 0 {
		return cap, core.New(core.Malformed, op, "empty MS RA Capability")
	}
	r := bitbuf.NewReader(buf)

	accessTechType, err := r.ReadField(4)
	if err != nil {
		return cap, core.New(core.Malformed, op, "short access technology type")
	}
	_ = accessTechType

	lenBits, err := r.ReadField(7)
	if err != nil {
		return cap, core.New(core.Malformed, op, "short access capability length")
	}
	if r.Remaining() < int(lenBits) {
		return cap, core.New(core.Malformed, op, "access capability length indicator overruns buffer")
	}

	rfPowerClass, err := r.ReadField(3)
	if err != nil {
		return cap, core.New(core.Malformed, op, "short RF power capability")
	}
	_ = rfPowerClass

	aBand, err := r.ReadBit()
	if err != nil {
		return cap, core.New(core.Malformed, op, "short A5 bits presence")
	}
	if aBand {
		if _, err := r.ReadField(7); err != nil {
			return cap, core.New(core.Malformed, op, "short A5 bits")
		}
	}

	egprsPresent, err := r.ReadBit()
	if err != nil {
		return cap, core.New(core.Malformed, op, "short EGPRS presence bit")
	}
	if egprsPresent {
		cap.EGPRSSupported = true
		mc, err := r.ReadField(5)
		if err != nil {
			return cap, core.New(core.Malformed, op, "short EGPRS multislot class")
		}
		cap.EGPRSMultislotClass = uint8(mc)
	}

	multislotPresent, err := r.ReadBit()
	if err != nil {
		return cap, core.New(core.Malformed, op, "short multislot class presence")
	}
	if multislotPresent {
		mc, err := r.ReadField(5)
		if err != nil {
			return cap, core.New(core.Malformed, op, "short multislot class")
		}
		cap.MultislotClass = uint8(mc)
	}

	return cap, nil
}
