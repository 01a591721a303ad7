//go:build linux

package hook

/*
	Trampolib - in-process x86-32 function hooking library
	Copyright (C) 2026  Trampolib Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linuxMemoryManager implements MemoryManager over mmap/mprotect/munmap,
// the same sibling-file pattern evasion_linux.go uses next to
// evasion_windows.go: identical interface, OS-native syscalls, not a
// degraded stub of the Windows backend.
//
// Unlike VirtualProtect, mprotect(2) does not hand back the protection a
// region had before the call, so protections of addresses this manager
// didn't itself mmap (the hook target's own code page, notably) are
// recovered by parsing /proc/self/maps once and cached from then on.
type linuxMemoryManager struct {
	mu       sync.Mutex
	mappings map[uintptr][]byte // regions this manager obtained via Reserve
	prot     map[uintptr]Protection
}

// NewOSMemoryManager returns the MemoryManager backed by real OS page
// allocation for the current platform.
func NewOSMemoryManager() MemoryManager {
	return &linuxMemoryManager{
		mappings: make(map[uintptr][]byte),
		prot:     make(map[uintptr]Protection),
	}
}

func (m *linuxMemoryManager) Reserve(size int) (uintptr, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return 0, fmt.Errorf("mmap: %w", err)
	}
	addr := uintptr(unsafe.Pointer(&b[0]))

	m.mu.Lock()
	m.mappings[addr] = b
	m.prot[addr] = ProtRW
	m.mu.Unlock()
	return addr, nil
}

func (m *linuxMemoryManager) Protect(addr uintptr, size int, prot Protection) (Protection, error) {
	m.mu.Lock()
	old, tracked := m.prot[addr]
	m.mu.Unlock()
	if !tracked {
		var err error
		old, err = protFromProcMaps(addr)
		if err != nil {
			return 0, fmt.Errorf("mprotect: %w", err)
		}
	}

	// mprotect(2) rejects a start address that is not page-aligned, so the
	// call covers the whole pages spanning [addr, addr+size).
	page := uintptr(os.Getpagesize())
	start := addr &^ (page - 1)
	view := unsafe.Slice((*byte)(unsafe.Pointer(start)), int(addr-start)+size)
	if err := unix.Mprotect(view, unixProtConst(prot)); err != nil {
		return 0, fmt.Errorf("mprotect: %w", err)
	}

	m.mu.Lock()
	m.prot[addr] = prot
	m.mu.Unlock()
	return old, nil
}

func (m *linuxMemoryManager) Release(addr uintptr, size int) error {
	m.mu.Lock()
	b, ok := m.mappings[addr]
	delete(m.mappings, addr)
	delete(m.prot, addr)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("munmap: address 0x%x was not obtained from Reserve", addr)
	}
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

func unixProtConst(p Protection) int {
	switch p {
	case ProtRWX:
		return unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	case ProtRX:
		return unix.PROT_READ | unix.PROT_EXEC
	default:
		return unix.PROT_READ | unix.PROT_WRITE
	}
}

// protFromProcMaps finds the VMA covering addr in /proc/self/maps and
// translates its permission string to the nearest Protection value.
func protFromProcMaps(addr uintptr) (Protection, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			continue
		}
		start, err1 := strconv.ParseUint(bounds[0], 16, 64)
		end, err2 := strconv.ParseUint(bounds[1], 16, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if uint64(addr) < start || uint64(addr) >= end {
			continue
		}
		perms := fields[1]
		switch {
		case strings.Contains(perms, "x"):
			if strings.Contains(perms, "w") {
				return ProtRWX, nil
			}
			return ProtRX, nil
		default:
			return ProtRW, nil
		}
	}
	return 0, fmt.Errorf("no mapping covers address 0x%x", addr)
}
