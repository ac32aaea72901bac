// Package coding catalogs the GPRS/EGPRS coding schemes (spec §3, §4.A):
// CS-1..CS-4 for GPRS, MCS-1..MCS-9 for EGPRS. A Scheme is a small value
// type; all derived attributes (block sizes, header type, family) are
// computed from a lookup table rather than stored per instance.
package coding

import "fmt"

// Scheme is a coding scheme identifier.
type Scheme uint8

const (
	Unknown Scheme = iota
	CS1
	CS2
	CS3
	CS4
	MCS1
	MCS2
	MCS3
	MCS4
	MCS5
	MCS6
	MCS7
	MCS8
	MCS9
)

// HeaderType enumerates the RLC data-block header layouts (spec §3).
type HeaderType uint8

const (
	HeaderUnknown HeaderType = iota
	HeaderGPRSData
	HeaderEGPRSDataT1
	HeaderEGPRSDataT2
	HeaderEGPRSDataT3
)

// Family groups schemes for link-adaptation inc/dec (spec §4.A): a scheme
// can only step within its own family.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyGPRS
	FamilyEGPRSGMSK
	FamilyEGPRSAny
)

type attrs struct {
	headerType       HeaderType
	family           Family
	numDataBlocks    int
	maxDataBlockBytes int
	spareBitsUL      int
	spareBitsDL      int
	sizeUL           int
	sizeDL           int
}

// table is indexed by Scheme. Sizes in bytes are full radio-block sizes
// (spec §3 "size_ul/dl"); max data block bytes exclude the RLC/MAC header.
var table = map[Scheme]attrs{
	CS1: {HeaderGPRSData, FamilyGPRS, 1, 20, 0, 0, 23, 23},
	CS2: {HeaderGPRSData, FamilyGPRS, 1, 30, 7, 7, 33, 33},
	CS3: {HeaderGPRSData, FamilyGPRS, 1, 36, 3, 3, 39, 39},
	CS4: {HeaderGPRSData, FamilyGPRS, 1, 50, 7, 7, 53, 53},

	MCS1: {HeaderEGPRSDataT3, FamilyEGPRSGMSK, 1, 22, 0, 0, 27, 27},
	MCS2: {HeaderEGPRSDataT3, FamilyEGPRSGMSK, 1, 28, 0, 0, 33, 33},
	MCS3: {HeaderEGPRSDataT3, FamilyEGPRSGMSK, 1, 37, 0, 0, 42, 42},
	MCS4: {HeaderEGPRSDataT3, FamilyEGPRSGMSK, 1, 44, 0, 0, 49, 49},
	MCS5: {HeaderEGPRSDataT2, FamilyEGPRSAny, 1, 56, 0, 0, 61, 61},
	MCS6: {HeaderEGPRSDataT2, FamilyEGPRSAny, 1, 74, 0, 0, 79, 79},
	MCS7: {HeaderEGPRSDataT1, FamilyEGPRSAny, 2, 56, 0, 0, 120, 120},
	MCS8: {HeaderEGPRSDataT1, FamilyEGPRSAny, 2, 68, 0, 0, 142, 142},
	MCS9: {HeaderEGPRSDataT1, FamilyEGPRSAny, 2, 74, 0, 0, 154, 154},
}

// String names the scheme, e.g. "CS-2" or "MCS-7".
func (s Scheme) String() string {
	switch {
	case s == Unknown:
		return "UNKNOWN"
	case s >= CS1 && s <= CS4:
		return fmt.Sprintf("CS-%d", s-CS1+1)
	case s >= MCS1 && s <= MCS9:
		return fmt.Sprintf("MCS-%d", s-MCS1+1)
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// IsGPRS reports whether s is one of CS-1..CS-4.
func (s Scheme) IsGPRS() bool { return s >= CS1 && s <= CS4 }

// IsEGPRS reports whether s is one of MCS-1..MCS-9.
func (s Scheme) IsEGPRS() bool { return s >= MCS1 && s <= MCS9 }

// IsEGPRSGMSK reports whether s is an EGPRS scheme restricted to GMSK
// modulation (MCS-1..MCS-4).
func (s Scheme) IsEGPRSGMSK() bool { return s >= MCS1 && s <= MCS4 }

// HeaderType returns the RLC data-block header layout for s.
func (s Scheme) HeaderType() HeaderType { return table[s].headerType }

// Family returns the link-adaptation family for s.
func (s Scheme) Family() Family { return table[s].family }

// NumDataBlocks returns 1 or 2: EGPRS header type 1 (MCS-7..9) carries
// two data blocks per radio block.
func (s Scheme) NumDataBlocks() int {
	if a, ok := table[s]; ok {
		return a.numDataBlocks
	}
	return 0
}

// MaxDataBlockBytes returns the payload capacity of one data block,
// excluding header bits.
func (s Scheme) MaxDataBlockBytes() int { return table[s].maxDataBlockBytes }

// SpareBitsUL/SpareBitsDL return the number of spare (unused) bits
// trailing the uplink/downlink radio block of s.
func (s Scheme) SpareBitsUL() int { return table[s].spareBitsUL }
func (s Scheme) SpareBitsDL() int { return table[s].spareBitsDL }

// SizeUL/SizeDL return the full radio-block size in bytes, spare bits
// included (spec §3 "size_ul/dl").
func (s Scheme) SizeUL() int { return table[s].sizeUL }
func (s Scheme) SizeDL() int { return table[s].sizeDL }

// ByUL returns the scheme whose uplink block size equals n bytes, used
// to demultiplex an incoming PH-DATA.ind by its length (spec §4.A
// by_size_ul, round-trip law R5).
func ByUL(n int) Scheme {
	for s, a := range table {
		if a.sizeUL == n {
			return s
		}
	}
	return Unknown
}

func familyOrder(f Family) []Scheme {
	switch f {
	case FamilyGPRS:
		return []Scheme{CS1, CS2, CS3, CS4}
	case FamilyEGPRSGMSK:
		return []Scheme{MCS1, MCS2, MCS3, MCS4}
	case FamilyEGPRSAny:
		return []Scheme{MCS1, MCS2, MCS3, MCS4, MCS5, MCS6, MCS7, MCS8, MCS9}
	default:
		return nil
	}
}

// Inc returns the next (higher-rate) scheme within s's family, saturating
// at the top of the family.
func (s Scheme) Inc() Scheme {
	order := familyOrder(s.Family())
	for i, o := range order {
		if o == s {
			if i+1 < len(order) {
				return order[i+1]
			}
			return s
		}
	}
	return s
}

// Dec returns the previous (lower-rate) scheme within s's family,
// saturating at the bottom of the family.
func (s Scheme) Dec() Scheme {
	order := familyOrder(s.Family())
	for i, o := range order {
		if o == s {
			if i > 0 {
				return order[i-1]
			}
			return s
		}
	}
	return s
}

// DecToSingleBlock returns the lowest-rate scheme within s's family whose
// radio block still fits in a single data block (NumDataBlocks == 1),
// reporting whether padding bits must be appended when resegmenting down
// to it (spec §4.A dec_to_single_block).
func (s Scheme) DecToSingleBlock() (single Scheme, needPadding bool) {
	order := familyOrder(s.Family())
	single = s
	for _, o := range order {
		if table[o].numDataBlocks == 1 {
			single = o
			break
		}
	}
	needPadding = single.MaxDataBlockBytes() < s.MaxDataBlockBytes()
	return single, needPadding
}

// FamilyCompatible reports whether a and b are reachable from one another
// via a resegmentation transition, i.e. share the same Family (spec §4.A).
func FamilyCompatible(a, b Scheme) bool {
	return a.Family() != FamilyNone && a.Family() == b.Family()
}
