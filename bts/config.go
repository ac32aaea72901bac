// Package bts wires the RLC/MAC building blocks (msreg, alloc, sched,
// tbf, wire) into a running PCU instance: Bts owns the MS registry and
// one or more Trx, each owning its Pdch set; Config carries the §6
// configuration surface validated the way part5's session.Config does.
package bts

import (
	"fmt"

	"github.com/osmo-go/pcu-rlcmac/tbf"
)

// AllocAlgorithm selects the PDCH/TFI/USF allocation strategy (spec §6
// "alloc_algorithm").
type AllocAlgorithm uint8

const (
	AlgorithmA AllocAlgorithm = iota
	AlgorithmB
)

// Config is the §6 configuration surface, validated the way
// part5's session.Config validates t0/t1/t2/t3/k/w before a session
// starts.
type Config struct {
	InitialCSDL, InitialCSUL uint8 // 1..4
	CS1, CS2, CS3, CS4       bool
	EGPRSEnabled             bool
	AllocAlgorithm           AllocAlgorithm

	T3142, T3169, T3191, T3195    uint32 // frame-number deadlines
	T3193Msec                     uint32
	N3101Max, N3103Max, N3105Max uint32
}

// DefaultConfig mirrors osmo-pcu's stock defaults for the timers and
// counters spec §6 enumerates.
func DefaultConfig() Config {
	return Config{
		InitialCSDL: 1, InitialCSUL: 1,
		CS1: true,
		T3142: 20, T3169: 5, T3191: 5, T3195: 10,
		T3193Msec: 100,
		N3101Max: 8, N3103Max: 8, N3105Max: 8,
	}
}

// Validate reports the first configuration error found, in the spirit
// of part5's mustTCPConfig range checks.
func (c Config) Validate() error {
	switch {
	case c.InitialCSDL < 1 || c.InitialCSDL > 4:
		return fmt.Errorf("bts: initial_cs_dl %d out of range 1..4", c.InitialCSDL)
	case c.InitialCSUL < 1 || c.InitialCSUL > 4:
		return fmt.Errorf("bts: initial_cs_ul %d out of range 1..4", c.InitialCSUL)
	case c.N3101Max == 0:
		return fmt.Errorf("bts: n3101 is zero")
	case c.N3103Max == 0:
		return fmt.Errorf("bts: n3103 is zero")
	case c.N3105Max == 0:
		return fmt.Errorf("bts: n3105 is zero")
	case c.T3169 == 0:
		return fmt.Errorf("bts: t3169 is zero")
	case c.T3191 == 0:
		return fmt.Errorf("bts: t3191 is zero")
	case c.T3195 == 0:
		return fmt.Errorf("bts: t3195 is zero")
	}
	return nil
}

// framesPerMsec approximates a GSM TDMA frame's 4.615ms duration,
// used only to translate the millisecond-denominated T3193 setting
// into the frame-number deadline tbf.Limits expects.
const framesPerMsec = 1.0 / 4.615

// TbfLimits projects the configured timers/counters onto tbf.Limits.
// T3142/T3169/T3191/T3195 are already frame-number deadlines in this
// config; T3193 is configured in milliseconds (matching osmo-pcu's
// own unit for that one timer) and converted here.
func (c Config) TbfLimits() tbf.Limits {
	return tbf.Limits{
		N3101Max: c.N3101Max, N3103Max: c.N3103Max, N3105Max: c.N3105Max,
		T3169: c.T3169, T3191: c.T3191, T3195: c.T3195,
		T3193: uint32(float64(c.T3193Msec) * framesPerMsec),
	}
}
