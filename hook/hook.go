// Package hook implements an in-process inline-hooking (detouring) engine
// for 32-bit x86 targets: it steals and relocates a target function's
// prologue into a trampoline, then overwrites the prologue with a five-byte
// relative jump to a detour. See package decoder for the length-disassembly
// and relocation this depends on.
//
// Unlike a direct port of the original C++ engine, there is no package-level
// hook table. Every Registry owns its own records, so a process may run
// more than one independent set of hooks (or, more usefully, tests may
// construct a fresh Registry per case without cross-test state leakage).
package hook

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bishopfox/trampolib/decoder"
)

var (
	ErrAllocFailed   = errors.New("hook: trampoline allocation failed")
	ErrProtectFailed = errors.New("hook: page protection change failed")
	// ErrTargetTooSmall is reserved for a prologue that decodes cleanly but
	// totals fewer than five bytes. decoder.Run's measuring loop only stops
	// short of the required length when an instruction fails to decode, so
	// in practice that case always surfaces as ErrCannotRelocate instead;
	// this sentinel stays as a defensive fallback alongside it.
	ErrTargetTooSmall  = errors.New("hook: target prologue shorter than 5 bytes")
	ErrCannotRelocate  = errors.New("hook: prologue instruction cannot be relocated")
	ErrDuplicateTarget = errors.New("hook: target already has a hook registered")
	ErrNotEnabled      = errors.New("hook: hook is not enabled")
)

const (
	jumpSize       = 5  // 0xE9 + disp32
	maxStolenBytes = 15 // worst-case single relocated instruction, per decoder's opcode coverage
	trampolineSize = maxStolenBytes + jumpSize
)

// Record is a single hook's state. Fields are unexported and mutated only
// by the Registry that created it; callers get read-only access through the
// accessor methods.
type Record struct {
	targetAddr uintptr
	detourAddr uintptr
	outSlot    *uintptr

	trampolineAddr uintptr
	stolenBytes    [maxStolenBytes]byte
	stolenLen      int
	replicatedLen  int
	enabled        bool
}

// TargetAddr returns the address of the function this record intercepts.
func (r *Record) TargetAddr() uintptr { return r.targetAddr }

// DetourAddr returns the address of the function invoked in its place.
func (r *Record) DetourAddr() uintptr { return r.detourAddr }

// Enabled reports whether the interception is currently installed.
func (r *Record) Enabled() bool { return r.enabled }

// Registry owns a set of hooks and the MemoryManager used to install them.
// It is not safe for concurrent Enable/Disable calls on the same record,
// matching the single-threaded model this library assumes throughout.
type Registry struct {
	mm       MemoryManager
	records  []*Record
	byTarget map[uintptr]*Record
}

// NewRegistry constructs an empty Registry backed by mm.
func NewRegistry(mm MemoryManager) *Registry {
	return &Registry{
		mm:       mm,
		byTarget: make(map[uintptr]*Record),
	}
}

// Create registers a new hook of detour over target, without touching any
// memory. outSlot receives the trampoline address once the hook is enabled,
// and is cleared (set to 0) on disable.
func (reg *Registry) Create(target, detour uintptr, outSlot *uintptr) (*Record, error) {
	if _, exists := reg.byTarget[target]; exists {
		return nil, fmt.Errorf("%w: 0x%x", ErrDuplicateTarget, target)
	}

	rec := &Record{targetAddr: target, detourAddr: detour, outSlot: outSlot}
	reg.records = append(reg.records, rec)
	reg.byTarget[target] = rec
	return rec, nil
}

// memAt returns a slice view of the n bytes of process memory starting at
// addr. addr may be a real OS-backed address or one returned by a test
// fake over its own Go-heap buffer — both are ordinary addressable memory
// from the perspective of this cast.
func memAt(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// writeJump encodes a relative E9 jump from "from" (the address of the
// jump's first byte) to "to", into dst.
func writeJump(dst []byte, from, to uintptr) {
	disp := int32(int64(to) - int64(from) - jumpSize)
	dst[0] = 0xE9
	dst[1] = byte(disp)
	dst[2] = byte(disp >> 8)
	dst[3] = byte(disp >> 16)
	dst[4] = byte(disp >> 24)
}

// Enable installs the interception described by rec, following spec's
// nine-step enable protocol in order.
func (reg *Registry) Enable(rec *Record) error {
	// Step 1: allocate the trampoline region, read/write.
	trampolineAddr, err := reg.mm.Reserve(trampolineSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}

	// Step 2: decode-and-relocate the prologue directly into the
	// trampoline. maxStolenBytes bounds the worst case a single covered
	// opcode can produce (see decoder's opcode-coverage note), so the
	// replicator's destination is sized exactly once and should never
	// need to grow past the page.
	src := memAt(rec.targetAddr, maxStolenBytes)
	rep := &decoder.Replicator{Dest: memAt(trampolineAddr, maxStolenBytes)}

	stolenLen, decErr := decoder.Run(src, jumpSize, rep)
	replicatedLen := rep.Written

	// Step 3: a decode error (unknown opcode, truncated instruction,
	// unsupported operand, intra-prologue branch) always means the
	// prologue could not be relocated. When the error comes from measure's
	// loop, stolen_len is also short of five bytes (the loop stopped at the
	// failing instruction); an error from the replicating pass comes with
	// the full measured length. Check decErr first so either case is
	// reported as CannotRelocate rather than mischaracterized as
	// TargetTooSmall.
	if decErr != nil {
		_ = reg.mm.Release(trampolineAddr, trampolineSize)
		return fmt.Errorf("%w: %v", ErrCannotRelocate, decErr)
	}
	if stolenLen < jumpSize {
		_ = reg.mm.Release(trampolineAddr, trampolineSize)
		return fmt.Errorf("%w: stolen_len=%d", ErrTargetTooSmall, stolenLen)
	}
	if addrOf(rep.Dest) != trampolineAddr {
		// The replicator outgrew the page we gave it: the prologue does
		// not fit the worst-case bound this engine assumes.
		_ = reg.mm.Release(trampolineAddr, trampolineSize)
		return fmt.Errorf("%w: relocated prologue exceeds trampoline capacity", ErrCannotRelocate)
	}

	// Step 4: tail jump back to the original function past the stolen
	// bytes, written at offset replicated_len of the trampoline.
	writeJump(
		memAt(trampolineAddr+uintptr(replicatedLen), jumpSize),
		trampolineAddr+uintptr(replicatedLen),
		rec.targetAddr+uintptr(stolenLen),
	)

	// Step 5: trampoline becomes execute/read.
	if _, err := reg.mm.Protect(trampolineAddr, trampolineSize, ProtRX); err != nil {
		_ = reg.mm.Release(trampolineAddr, trampolineSize)
		return fmt.Errorf("%w: %v", ErrProtectFailed, err)
	}

	// Step 6: back up the original prologue bytes before they're overwritten.
	copy(rec.stolenBytes[:stolenLen], memAt(rec.targetAddr, stolenLen))

	// Step 7: the forward jump from target to detour.
	var fwdJump [jumpSize]byte
	writeJump(fwdJump[:], rec.targetAddr, rec.detourAddr)

	// Step 8: scoped protection guard over the target while the jump is
	// written; restores the prior protection on every exit path.
	prior, err := reg.mm.Protect(rec.targetAddr, jumpSize, ProtRWX)
	if err != nil {
		_ = reg.mm.Release(trampolineAddr, trampolineSize)
		return fmt.Errorf("%w: %v", ErrProtectFailed, err)
	}
	copy(memAt(rec.targetAddr, jumpSize), fwdJump[:])
	if _, err := reg.mm.Protect(rec.targetAddr, jumpSize, prior); err != nil {
		// The write already landed; surface the rollback failure but do
		// not unwind the hook — it is installed, just left at a wider
		// protection than before.
		rec.trampolineAddr = trampolineAddr
		rec.stolenLen = stolenLen
		rec.replicatedLen = replicatedLen
		rec.enabled = true
		if rec.outSlot != nil {
			*rec.outSlot = trampolineAddr
		}
		return fmt.Errorf("%w: restoring target protection: %v", ErrProtectFailed, err)
	}

	// Step 9: publish and mark enabled.
	rec.trampolineAddr = trampolineAddr
	rec.stolenLen = stolenLen
	rec.replicatedLen = replicatedLen
	rec.enabled = true
	if rec.outSlot != nil {
		*rec.outSlot = trampolineAddr
	}
	return nil
}

// Disable restores rec's original prologue and releases its trampoline,
// following the four-step disable protocol.
func (reg *Registry) Disable(rec *Record) error {
	// Step 1.
	if !rec.enabled {
		return fmt.Errorf("%w: target 0x%x", ErrNotEnabled, rec.targetAddr)
	}

	// Step 2: restore the backed-up prologue under a protection guard.
	prior, err := reg.mm.Protect(rec.targetAddr, rec.stolenLen, ProtRWX)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProtectFailed, err)
	}
	copy(memAt(rec.targetAddr, rec.stolenLen), rec.stolenBytes[:rec.stolenLen])
	if _, err := reg.mm.Protect(rec.targetAddr, rec.stolenLen, prior); err != nil {
		return fmt.Errorf("%w: restoring target protection: %v", ErrProtectFailed, err)
	}

	// Step 3: release the trampoline; a future Enable allocates fresh.
	if err := reg.mm.Release(rec.trampolineAddr, trampolineSize); err != nil {
		return fmt.Errorf("%w: %v", ErrProtectFailed, err)
	}

	// Step 4.
	rec.trampolineAddr = 0
	rec.stolenLen = 0
	rec.replicatedLen = 0
	rec.enabled = false
	if rec.outSlot != nil {
		*rec.outSlot = 0
	}
	return nil
}

// EnableAll enables every registered hook in creation order, short-
// circuiting and returning the first failure. Hooks already enabled by the
// time of a later failure remain enabled: partial state is permitted, and
// callers may retry individual handles.
func (reg *Registry) EnableAll() error {
	for _, rec := range reg.records {
		if err := reg.Enable(rec); err != nil {
			return err
		}
	}
	return nil
}

// DisableAll disables every registered hook in reverse creation order,
// short-circuiting and returning the first failure.
func (reg *Registry) DisableAll() error {
	for i := len(reg.records) - 1; i >= 0; i-- {
		if err := reg.Disable(reg.records[i]); err != nil {
			return err
		}
	}
	return nil
}
