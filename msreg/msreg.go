// Package msreg tracks the mobile stations a PCU instance currently
// knows about, keyed by TLLI, and their attached TBFs (spec §3, §4.F).
// Grounded on GprsMs/GprsMsStorage in
// original_source/src/gprs_ms.h and gprs_ms_storage.cpp.
package msreg

import (
	"sync"

	"github.com/rs/xid"
)

// UlAttach and DlAttach are the two TBF slots an MS can hold, kept as
// opaque handles here; tbf.UlTbf/tbf.DlTbf implement them. Declared
// as interfaces (rather than importing tbf)
// so msreg has no dependency on the TBF state machines it is attached
// to, mirroring GprsMs's forward-declared gprs_rlcmac_ul_tbf/*_dl_tbf.
type UlAttach interface {
	Detach()
}

type DlAttach interface {
	Detach()
}

// MS is one mobile station tracked by TLLI, grounded on the GprsMs
// class. A zero TLLI means "not yet known" (contention resolution
// pending).
type MS struct {
	mu sync.Mutex

	tlli       uint32
	newULTLLI  uint32
	newDLTLLI  uint32
	ulTBF      UlAttach
	dlTBF      DlAttach
	ref        int
	GuardID    xid.ID // correlation id for log fields across this MS's lifetime
}

// newMS allocates a tracked MS for tlli, stamping a fresh Guard
// correlation id (spec §5 "Guard").
func newMS(tlli uint32) *MS {
	return &MS{tlli: tlli, GuardID: xid.New()}
}

// TLLI returns the TLLI currently in effect: a staged uplink TLLI
// takes priority over the confirmed one, matching GprsMs::tlli().
func (m *MS) TLLI() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.newULTLLI != 0 {
		return m.newULTLLI
	}
	return m.tlli
}

// CheckTLLI reports whether tlli matches the confirmed TLLI or either
// staged TLLI (GprsMs::check_tlli).
func (m *MS) CheckTLLI(tlli uint32) bool {
	if tlli == 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return tlli == m.tlli || tlli == m.newULTLLI || tlli == m.newDLTLLI
}

// StageULTLLI records a new TLLI observed on the uplink, pending
// confirmation (GprsMs's new_ul_tlli bookkeeping).
func (m *MS) StageULTLLI(tlli uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newULTLLI = tlli
}

// StageDLTLLI records a new TLLI to be used for the next downlink
// assignment, pending confirmation (GprsMs's new_dl_tlli bookkeeping).
func (m *MS) StageDLTLLI(tlli uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newDLTLLI = tlli
}

// ConfirmTLLI commits tlli as the MS's TLLI once the peer has
// demonstrably used it, clearing whichever staged slot it matches
// (GprsMs::confirm_tlli). It reports whether tlli matched a staged
// value.
func (m *MS) ConfirmTLLI(tlli uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	confirmed := false
	if tlli == m.newULTLLI {
		m.tlli = tlli
		m.newULTLLI = 0
		confirmed = true
	}
	if tlli == m.newDLTLLI {
		m.tlli = tlli
		m.newDLTLLI = 0
		confirmed = true
	}
	return confirmed
}

// AttachUL attaches the MS's uplink TBF.
func (m *MS) AttachUL(tbf UlAttach) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ulTBF = tbf
}

// AttachDL attaches the MS's downlink TBF.
func (m *MS) AttachDL(tbf DlAttach) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlTBF = tbf
}

// DetachUL clears the MS's uplink TBF, calling Detach on it first.
func (m *MS) DetachUL() {
	m.mu.Lock()
	tbf := m.ulTBF
	m.ulTBF = nil
	m.mu.Unlock()
	if tbf != nil {
		tbf.Detach()
	}
}

// DetachDL clears the MS's downlink TBF, calling Detach on it first.
func (m *MS) DetachDL() {
	m.mu.Lock()
	tbf := m.dlTBF
	m.dlTBF = nil
	m.mu.Unlock()
	if tbf != nil {
		tbf.Detach()
	}
}

// IsIdle reports whether the MS has no attached TBF and no
// outstanding Guard references (GprsMs::is_idle).
func (m *MS) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ulTBF == nil && m.dlTBF == nil && m.ref == 0
}

func (m *MS) incRef() {
	m.mu.Lock()
	m.ref++
	m.mu.Unlock()
}

func (m *MS) decRef() {
	m.mu.Lock()
	m.ref--
	m.mu.Unlock()
}

// Guard is a scoped reference that keeps an MS alive across a call
// that might otherwise race with its idle sweep (GprsMs::Guard),
// e.g. while an RTS handler is still reading MS state after the TBF
// that justified the MS's existence just detached.
type Guard struct {
	ms *MS
}

// NewGuard takes a reference on ms, valid until Release is called.
func NewGuard(ms *MS) *Guard {
	ms.incRef()
	return &Guard{ms: ms}
}

// Release drops the reference taken by NewGuard.
func (g *Guard) Release() {
	if g.ms != nil {
		g.ms.decRef()
		g.ms = nil
	}
}

// Registry tracks every MS known to a PCU instance, keyed by TLLI,
// grounded on GprsMsStorage.
type Registry struct {
	mu sync.Mutex
	byID map[uint32]*MS
	all  []*MS
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]*MS)}
}

// Get returns the MS matching tlli or oldTLLI, or nil if none is
// tracked (GprsMsStorage::get_ms).
func (r *Registry) Get(tlli, oldTLLI uint32) *MS {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(tlli, oldTLLI)
}

func (r *Registry) find(tlli, oldTLLI uint32) *MS {
	for _, ms := range r.all {
		if ms.CheckTLLI(tlli) || (oldTLLI != 0 && ms.CheckTLLI(oldTLLI)) {
			return ms
		}
	}
	return nil
}

// GetOrCreate returns the tracked MS for tlli/oldTLLI, allocating a
// fresh one (with a new Guard correlation id) if none exists yet
// (GprsMsStorage::get_or_create_ms).
func (r *Registry) GetOrCreate(tlli, oldTLLI uint32) *MS {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ms := r.find(tlli, oldTLLI); ms != nil {
		return ms
	}
	ms := newMS(tlli)
	r.byID[tlli] = ms
	r.all = append(r.all, ms)
	return ms
}

// Idle removes ms from the registry if it has gone idle
// (GprsMsStorage::ms_idle). Callers invoke this after detaching a
// TBF; it is a no-op if ms still has an attachment or a live Guard.
func (r *Registry) Idle(ms *MS) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ms.IsIdle() {
		return
	}
	r.remove(ms)
}

func (r *Registry) remove(ms *MS) {
	for i, m := range r.all {
		if m == ms {
			r.all = append(r.all[:i], r.all[i+1:]...)
			break
		}
	}
	delete(r.byID, ms.tlli)
}

// Len reports how many MS entries are currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all)
}

// Close force-idles and drops every tracked MS, detaching any TBF
// still attached (GprsMsStorage::~GprsMsStorage).
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.all
	r.all = nil
	r.byID = make(map[uint32]*MS)
	r.mu.Unlock()

	for _, ms := range all {
		ms.DetachUL()
		ms.DetachDL()
	}
}
