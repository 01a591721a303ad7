package decoder

// prefixBytes is the closed set of legacy x86 prefix bytes (spec.md
// §4.A "Prefix parsing"). 0x66 is singled out below because it also flips
// the operand-size-override flag consulted by operandSize.
var prefixBytes = map[byte]bool{
	0xF0: true, 0xF2: true, 0xF3: true,
	0x2E: true, 0x36: true, 0x3E: true, 0x26: true,
	0x64: true, 0x65: true,
	0x66: true, 0x67: true,
}

const operandSizeOverridePrefix = 0x66

const maxPrefixes = 4

// parsePrefixes consumes up to maxPrefixes prefix bytes. A fifth prefix
// candidate ends the prefix phase early and the byte is treated as the
// opcode instead, per spec.md §4.A.
func (st *state) parsePrefixes() error {
	for st.prefixCount < maxPrefixes && st.ip < len(st.src) && prefixBytes[st.src[st.ip]] {
		b := st.src[st.ip]
		st.advanceAndReplicate(1)
		if b == operandSizeOverridePrefix {
			st.operandSizeOverr = true
		}
		st.prefixCount++
	}
	return nil
}
