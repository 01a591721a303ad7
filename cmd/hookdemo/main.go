// Command hookdemo exercises the trampolib hook engine end to end: it
// allocates a target and detour routine, each bumping its own counter,
// installs a hook redirecting the target's entry point to the detour,
// calls the target before enabling, after enabling, and after disabling,
// and reports which counter moved each time.
//
// Mirrors original_source/src/dllmain.cpp's TestFunc/PatchedFunc
// walkthrough: install, call, EnableAllHooks, call, DisableAllHooks, call.
package main

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bishopfox/trampolib/hook"
)

var log = logrus.WithField("component", "hookdemo")

func main() {
	root := &cobra.Command{
		Use:   "hookdemo",
		Short: "Install, exercise, and remove an in-process x86-32 hook",
		RunE:  runDemo,
	}
	if err := root.Execute(); err != nil {
		log.WithError(err).Error("demo failed")
		os.Exit(1)
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	mm := hook.NewOSMemoryManager()
	reg := hook.NewRegistry(mm)

	targetCounter, err := newCounter(mm)
	if err != nil {
		return fmt.Errorf("allocating target counter: %w", err)
	}
	detourCounter, err := newCounter(mm)
	if err != nil {
		return fmt.Errorf("allocating detour counter: %w", err)
	}

	targetAddr, err := loadRoutine(mm, targetCode, targetCounter)
	if err != nil {
		return fmt.Errorf("loading target routine: %w", err)
	}
	detourAddr, err := loadRoutine(mm, detourCode, detourCounter)
	if err != nil {
		return fmt.Errorf("loading detour routine: %w", err)
	}

	var trampolineSlot uintptr
	rec, err := reg.Create(targetAddr, detourAddr, &trampolineSlot)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	color.Green("created hook: target=0x%x detour=0x%x", targetAddr, detourAddr)

	report(targetAddr, targetCounter, detourCounter, "before enable")

	if err := reg.Enable(rec); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	color.Cyan("enabled: trampoline=0x%x", trampolineSlot)
	report(targetAddr, targetCounter, detourCounter, "after enable")

	if err := reg.Disable(rec); err != nil {
		return fmt.Errorf("disable: %w", err)
	}
	color.Cyan("disabled")
	report(targetAddr, targetCounter, detourCounter, "after disable")

	return nil
}

func newCounter(mm hook.MemoryManager) (uintptr, error) {
	addr, err := mm.Reserve(4)
	if err != nil {
		return 0, err
	}
	if _, err := mm.Protect(addr, 4, hook.ProtRW); err != nil {
		return 0, err
	}
	return addr, nil
}

// loadRoutine allocates an executable page for code, patches its absolute
// counter-address operands to point at counterAddr, and returns the
// routine's final address.
func loadRoutine(mm hook.MemoryManager, code []byte, counterAddr uintptr) (uintptr, error) {
	addr, err := mm.Reserve(len(code))
	if err != nil {
		return 0, err
	}
	patched := make([]byte, len(code))
	copy(patched, code)
	patchCounterAddress(patched, uint32(counterAddr))
	copy(viewMem(addr, len(patched)), patched)

	if _, err := mm.Protect(addr, len(patched), hook.ProtRX); err != nil {
		return 0, err
	}
	return addr, nil
}

func report(targetAddr, targetCounter, detourCounter uintptr, label string) {
	beforeTarget, beforeDetour := readCounter(targetCounter), readCounter(detourCounter)
	if err := invoke(targetAddr); err != nil {
		log.WithField("step", label).Warn(err)
		return
	}
	afterTarget, afterDetour := readCounter(targetCounter), readCounter(detourCounter)
	log.WithFields(logrus.Fields{
		"step":         label,
		"target_delta": afterTarget - beforeTarget,
		"detour_delta": afterDetour - beforeDetour,
	}).Info("invoked target entry point")
}

func readCounter(addr uintptr) uint32 {
	b := viewMem(addr, 4)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func viewMem(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
