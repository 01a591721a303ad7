//go:build !windows && !linux

package hook

// unsupportedMemoryManager reports ErrUnsupportedPlatform for every method.
// Documented as out of scope rather than a silent no-op backend: this
// library's core protocol only operates correctly against 32-bit x86 code,
// and no other platform's page-protection model is modeled here.
type unsupportedMemoryManager struct{}

// NewOSMemoryManager returns the MemoryManager for the current platform.
func NewOSMemoryManager() MemoryManager { return unsupportedMemoryManager{} }

func (unsupportedMemoryManager) Reserve(size int) (uintptr, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedMemoryManager) Protect(addr uintptr, size int, prot Protection) (Protection, error) {
	return 0, ErrUnsupportedPlatform
}

func (unsupportedMemoryManager) Release(addr uintptr, size int) error {
	return ErrUnsupportedPlatform
}
