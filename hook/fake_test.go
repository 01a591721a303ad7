package hook

import "fmt"

// fakeRegion is one block of fake "process memory" the test MemoryManager
// hands out, either via Reserve (trampolines) or via registerTarget (a
// stand-in for a function's code page).
type fakeRegion struct {
	buf  []byte
	prot Protection
}

// fakeMemoryManager satisfies MemoryManager entirely over plain Go byte
// slices, so the enable/disable protocol's byte-level invariants (spec's
// testable properties 1-4) can be exercised on any host without OS
// privileges or real page allocation. It does not execute any code; that
// requires a real 386 host (see the integration-tagged test).
type fakeMemoryManager struct {
	regions map[uintptr]*fakeRegion
}

func newFakeMemoryManager() *fakeMemoryManager {
	return &fakeMemoryManager{regions: make(map[uintptr]*fakeRegion)}
}

// registerTarget adopts buf as a fake function body at a stable fake
// address and returns that address, with the given starting protection
// (conventionally ProtRX, mirroring an already-loaded code page).
func (f *fakeMemoryManager) registerTarget(buf []byte, prot Protection) uintptr {
	addr := addrOf(buf)
	f.regions[addr] = &fakeRegion{buf: buf, prot: prot}
	return addr
}

func (f *fakeMemoryManager) Reserve(size int) (uintptr, error) {
	buf := make([]byte, size)
	addr := addrOf(buf)
	f.regions[addr] = &fakeRegion{buf: buf, prot: ProtRW}
	return addr, nil
}

func (f *fakeMemoryManager) Protect(addr uintptr, size int, prot Protection) (Protection, error) {
	r, ok := f.regions[addr]
	if !ok {
		return 0, fmt.Errorf("fake: address 0x%x not known to this manager", addr)
	}
	old := r.prot
	r.prot = prot
	return old, nil
}

func (f *fakeMemoryManager) Release(addr uintptr, size int) error {
	if _, ok := f.regions[addr]; !ok {
		return fmt.Errorf("fake: address 0x%x not known to this manager", addr)
	}
	delete(f.regions, addr)
	return nil
}
