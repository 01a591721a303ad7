package decoder

import "testing"

// TestSingleByteInstructions mirrors the teacher's lito_test.go table-driven
// style for the opcodes this core covers without a ModR/M byte.
func TestSingleByteInstructions(t *testing.T) {
	tests := []struct {
		name     string
		code     []byte
		expected int
	}{
		{"PUSH EAX", []byte{0x50}, 1},
		{"PUSH EDI", []byte{0x57}, 1},
		{"POP EAX", []byte{0x58}, 1},
		{"RET", []byte{0xC3}, 1},
		{"NOP", []byte{0x90}, 1},
		{"INT3", []byte{0xCC}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Run(tt.code, 1, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.expected {
				t.Errorf("expected length %d, got %d", tt.expected, n)
			}
		})
	}
}

// TestS1ShortPrologueNoRelocation: push ebp; mov ebp,esp; sub esp,0x10.
func TestS1ShortPrologueNoRelocation(t *testing.T) {
	code := []byte{0x55, 0x8B, 0xEC, 0x83, 0xEC, 0x10}

	length, err := Run(code, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != 6 {
		t.Fatalf("expected stolen_len 6, got %d", length)
	}

	rep := &Replicator{Dest: make([]byte, 20)}
	replicatedLen, err := Run(code, 5, rep)
	if err != nil {
		t.Fatalf("unexpected relocation error: %v", err)
	}
	if replicatedLen != 6 {
		t.Fatalf("expected replicated_len 6, got %d", replicatedLen)
	}
	if rep.Written != 6 {
		t.Fatalf("expected 6 bytes written, got %d", rep.Written)
	}
	for i := 0; i < 6; i++ {
		if rep.Dest[i] != code[i] {
			t.Errorf("byte %d: expected %#x, got %#x (no relocatable operand, should be identical)", i, code[i], rep.Dest[i])
		}
	}
}

// TestS2NearCallRelocation: call rel32; ret. The 4-byte displacement must be
// re-based to preserve the absolute call target from the trampoline.
func TestS2NearCallRelocation(t *testing.T) {
	code := []byte{0xE8, 0x34, 0x12, 0x00, 0x00, 0xC3}

	length, err := Run(code, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != 5 {
		t.Fatalf("expected stolen_len 5, got %d", length)
	}

	// Place source and destination far enough apart (distinct backing
	// arrays) that the relocation arithmetic is exercised non-trivially.
	src := make([]byte, len(code)+64)
	copy(src, code)
	rep := &Replicator{Dest: make([]byte, 20)}

	replicatedLen, err := Run(src, 5, rep)
	if err != nil {
		t.Fatalf("unexpected relocation error: %v", err)
	}
	if replicatedLen != 5 {
		t.Fatalf("expected replicated_len 5, got %d", replicatedLen)
	}
	if rep.Dest[0] != 0xE8 {
		t.Fatalf("expected opcode 0xE8 preserved, got %#x", rep.Dest[0])
	}

	srcAddr := addrOf(src)
	dstAddr := addrOf(rep.Dest)
	want := int32(0x1234) + int32(int64(srcAddr)-int64(dstAddr))
	got := int32(uint32(rep.Dest[1]) | uint32(rep.Dest[2])<<8 | uint32(rep.Dest[3])<<16 | uint32(rep.Dest[4])<<24)
	if got != want {
		t.Errorf("expected relocated displacement %#x, got %#x", want, got)
	}
}

// TestS3ShortFunctionTruncates: a bare RET followed by no further valid
// bytes. The decoder must report the 1-byte partial result rather than
// fabricate instructions from an empty tail, so the caller can recognize a
// prologue shorter than a five-byte jump.
func TestS3ShortFunctionTruncates(t *testing.T) {
	code := []byte{0xC3}

	length, err := Run(code, 5, nil)
	if err == nil {
		t.Fatalf("expected a truncation error, got none (length=%d)", length)
	}
	if length != 1 {
		t.Errorf("expected partial length 1, got %d", length)
	}
}

// TestS4OperandSizeOverride: mov ax, 0x1234; nop; nop. The 0x66 prefix must
// shrink B8's immediate from 4 bytes to 2.
func TestS4OperandSizeOverride(t *testing.T) {
	code := []byte{0x66, 0xB8, 0x34, 0x12, 0x90, 0x90}

	length, err := Run(code, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != 5 {
		t.Fatalf("expected stolen_len 5 (4+1), got %d", length)
	}
}

// TestS6IntraPrologueBranchRejected: jmp +0 lands inside the region that
// would itself be relocated.
func TestS6IntraPrologueBranchRejected(t *testing.T) {
	code := []byte{0xEB, 0x00, 0x90, 0x90, 0x90}

	length, err := Run(code, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error measuring length: %v", err)
	}
	if length != 5 {
		t.Fatalf("expected length 5, got %d", length)
	}

	rep := &Replicator{Dest: make([]byte, 20)}
	_, err = Run(code, 5, rep)
	if err == nil {
		t.Fatal("expected ErrIntraPrologueBranch, got nil")
	}
	if got := err; got != ErrIntraPrologueBranch {
		// wrapped form check via errors.Is semantics
		if !isIntraPrologueBranch(err) {
			t.Fatalf("expected ErrIntraPrologueBranch, got %v", err)
		}
	}
}

func isIntraPrologueBranch(err error) bool {
	for err != nil {
		if err == ErrIntraPrologueBranch {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// TestUnknownOpcodeRejected exercises the uncovered two-byte escape family.
func TestUnknownOpcodeRejected(t *testing.T) {
	code := []byte{0x0F, 0x1F, 0x00, 0x00, 0x00, 0x00}
	_, err := Run(code, 5, nil)
	if err != ErrUnknownOpcode && !isUnknownOpcode(err) {
		t.Fatalf("expected ErrUnknownOpcode, got %v", err)
	}
}

func isUnknownOpcode(err error) bool {
	for err != nil {
		if err == ErrUnknownOpcode {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// TestNeverSplitsAnInstruction is a property check (spec.md §8 property 4):
// for a range of required thresholds, the returned length is always >=
// required and always lands exactly on an instruction boundary (i.e.
// running the decoder again with required = returned length reproduces the
// same length).
func TestNeverSplitsAnInstruction(t *testing.T) {
	code := []byte{0x55, 0x8B, 0xEC, 0x83, 0xEC, 0x10, 0x90, 0x90, 0x90, 0x90}

	for required := 1; required <= 6; required++ {
		length, err := Run(code, required, nil)
		if err != nil {
			t.Fatalf("required=%d: unexpected error: %v", required, err)
		}
		if length < required {
			t.Fatalf("required=%d: returned length %d is less than required", required, length)
		}
		again, err := Run(code, length, nil)
		if err != nil {
			t.Fatalf("required=%d: re-running at exact length failed: %v", required, err)
		}
		if again != length {
			t.Fatalf("required=%d: length %d is not an instruction boundary (re-run gave %d)", required, length, again)
		}
	}
}

// TestReplicatorGrows exercises the buffer growth path directly: doubling
// the 2-byte buffer (to 4) is not enough for a 5-byte write, so it grows to
// fit instead.
func TestReplicatorGrows(t *testing.T) {
	rep := &Replicator{Dest: make([]byte, 2)}
	rep.write([]byte{1, 2, 3, 4, 5})
	if rep.Written != 5 {
		t.Fatalf("expected 5 bytes written, got %d", rep.Written)
	}
	if len(rep.Dest) < 5 {
		t.Fatalf("expected destination grown to at least 5 bytes, got %d", len(rep.Dest))
	}
	for i, want := range []byte{1, 2, 3, 4, 5} {
		if rep.Dest[i] != want {
			t.Errorf("byte %d: expected %d, got %d", i, want, rep.Dest[i])
		}
	}
}
