//go:build windows

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
	"fmt"

	"golang.org/x/sys/windows"
)

// winMemoryManager implements MemoryManager over the real Win32 VirtualAlloc
// family, grounded on evasion_windows.go's VirtualProtect usage (same
// NewLazySystemDLL-free direct x/sys/windows calls, same
// protect-write-restore shape as RefreshPE/writeGoodBytes).
type winMemoryManager struct{}

// NewOSMemoryManager returns the MemoryManager backed by real OS page
// allocation for the current platform.
func NewOSMemoryManager() MemoryManager { return winMemoryManager{} }

func (winMemoryManager) Reserve(size int) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, fmt.Errorf("VirtualAlloc: %w", err)
	}
	return addr, nil
}

func (winMemoryManager) Protect(addr uintptr, size int, prot Protection) (Protection, error) {
	var old uint32
	if err := windows.VirtualProtect(addr, uintptr(size), winProtConst(prot), &old); err != nil {
		return 0, fmt.Errorf("VirtualProtect: %w", err)
	}
	return protFromWin(old), nil
}

func (winMemoryManager) Release(addr uintptr, size int) error {
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("VirtualFree: %w", err)
	}
	return nil
}

func winProtConst(p Protection) uint32 {
	switch p {
	case ProtRWX:
		return windows.PAGE_EXECUTE_READWRITE
	case ProtRX:
		return windows.PAGE_EXECUTE_READ
	default:
		return windows.PAGE_READWRITE
	}
}

func protFromWin(c uint32) Protection {
	switch c {
	case windows.PAGE_EXECUTE_READWRITE:
		return ProtRWX
	case windows.PAGE_EXECUTE_READ:
		return ProtRX
	default:
		return ProtRW
	}
}
