//go:build 386

package main

// callRoutine is implemented in invoke_386.s: it calls the cdecl, no-
// argument, no-return routine at addr directly on the Go stack. Safe only
// because targetCode/detourCode are stack-neutral (push ebp ... pop ebp;
// ret) and touch no register Go relies on across the call.
func callRoutine(addr uintptr)

func invoke(addr uintptr) error {
	callRoutine(addr)
	return nil
}
