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

// ResolveSymbol resolves an exported function's address by module and
// symbol name — the Go-native equivalent of
// GetProcAddress(GetModuleHandle(module), name) from
// original_source/src/dllmain.cpp, grounded on evasion_windows.go's
// NewLazySystemDLL/NewProc usage. It exists only for the demo host;
// neither decoder nor the core hook protocol import it.
func ResolveSymbol(module, name string) (uintptr, error) {
	dll := windows.NewLazySystemDLL(module)
	if err := dll.Load(); err != nil {
		return 0, fmt.Errorf("winsym: load %s: %w", module, err)
	}
	proc := dll.NewProc(name)
	if err := proc.Find(); err != nil {
		return 0, fmt.Errorf("winsym: find %s!%s: %w", module, name, err)
	}
	return proc.Addr(), nil
}
