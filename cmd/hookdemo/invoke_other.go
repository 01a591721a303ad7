//go:build !386

package main

import "errors"

// invoke reports that executing a raw x86-32 routine from this process
// requires a GOARCH=386 build: the library's Create/Enable/Disable contract
// is fully exercised regardless of host architecture, but actually
// branching the CPU into the installed trampoline only makes sense when
// the host CPU is executing 32-bit x86 code in the first place.
var errRequires386 = errors.New("hookdemo: executing the hooked routine requires a GOARCH=386 build; run with GOARCH=386 to observe it, or see the hook package's integration test")

func invoke(addr uintptr) error {
	return errRequires386
}
