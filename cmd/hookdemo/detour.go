package main

import "encoding/binary"

// targetCode and detourCode are small, self-contained x86-32 __cdecl
// routines, hand-assembled the way original_source/src/dllmain.cpp's
// TestFunc/PatchedFunc pair is, but expressed directly as machine code
// since this module has no C toolchain step to compile them from source.
//
// Each increments a 32-bit counter at a fixed absolute address and returns:
//
//	push ebp                ; 55
//	mov  ebp, esp           ; 8B EC
//	mov  eax, [counterAddr] ; A1 <addr>
//	add  eax, 1             ; 83 C0 01
//	mov  [counterAddr], eax ; A3 <addr>
//	pop  ebp                ; 5D
//	ret                     ; C3
//
// The two counter-address operands are absolute (moffs32), not
// IP-relative, so they need no relocation when the decoder steals this
// routine's first five-plus bytes into a trampoline — only the leading
// "push ebp; mov ebp,esp; mov eax,[addr]" prologue (8 bytes) ever gets
// copied; the rest keeps executing in place via the tail jump.
//
// target and detour write to distinct counters so the demo can tell which
// one actually ran after a call to the target's entry point.
var targetCode = []byte{
	0x55,
	0x8B, 0xEC,
	0xA1, 0, 0, 0, 0,
	0x83, 0xC0, 0x01,
	0xA3, 0, 0, 0, 0,
	0x5D,
	0xC3,
}

var detourCode = []byte{
	0x55,
	0x8B, 0xEC,
	0xA1, 0, 0, 0, 0,
	0x83, 0xC0, 0x01,
	0xA3, 0, 0, 0, 0,
	0x5D,
	0xC3,
}

const (
	loadCounterOperandOffset  = 4  // offset of the operand for "mov eax,[addr]"
	storeCounterOperandOffset = 12 // offset of the operand for "mov [addr],eax"
)

// patchCounterAddress rewrites both moffs32 operands in code to point at
// addr, the way a loader would relocate an absolute reference once the
// counter cell's final address is known.
func patchCounterAddress(code []byte, addr uint32) {
	binary.LittleEndian.PutUint32(code[loadCounterOperandOffset:], addr)
	binary.LittleEndian.PutUint32(code[storeCounterOperandOffset:], addr)
}
