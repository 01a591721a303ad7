package hook

import "errors"

// Protection mirrors the coarse page-protection states the hook engine
// actually needs; it deliberately does not expose the full OS-specific
// protection constant space.
type Protection int

const (
	ProtRW Protection = iota
	ProtRWX
	ProtRX
)

// ErrUnsupportedPlatform is returned by every MemoryManager method on a
// platform this library has no real backend for.
var ErrUnsupportedPlatform = errors.New("hook: unsupported platform")

// MemoryManager abstracts the OS page-allocation and protection services
// spec.md §6 describes abstractly ("reserve+commit", "change protection",
// "release"). Modeling it as an interface lets the enable/disable protocol
// in Registry be exercised by a fake backed by plain Go slices, without a
// real OS page allocator or elevated privileges.
type MemoryManager interface {
	// Reserve commits a block of at least size bytes, readable and
	// writable, and returns its address.
	Reserve(size int) (uintptr, error)
	// Protect changes the protection of the size bytes starting at addr
	// and returns the protection that was in effect beforehand, so the
	// caller can restore it later.
	Protect(addr uintptr, size int, prot Protection) (Protection, error)
	// Release returns a block obtained from Reserve back to the OS.
	Release(addr uintptr, size int) error
}
