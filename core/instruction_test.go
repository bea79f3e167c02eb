package core

import "testing"

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []Instruction{
		{Op: OpADD, RA: 1, RB: 2, RC: 3},
		{Op: OpADDI, RA: 4, RB: 5, Imm: 0xabc},
		{Op: OpNOT, RA: 6, Imm: 7},
		{Op: OpJI, Imm: 0xdeadb & 0xffffff},
		{Op: OpMEQ, RA: 1, RB: 2, RC: 3, RD: 4},
		{Op: OpNOOP},
	}
	for _, want := range cases {
		word := Encode(want)
		got := Decode(word)
		if got != want {
			t.Errorf("round trip mismatch: encoded %v as %#x, decoded back to %v", want, word, got)
		}
	}
}

func TestDecodeIsTotal(t *testing.T) {
	for tag := 0; tag < 256; tag++ {
		word := uint32(tag) << 24
		inst := Decode(word)
		if int(inst.Op) >= int(opcodeCount) {
			t.Fatalf("tag %d decoded to out-of-range opcode %d", tag, inst.Op)
		}
	}
}

func TestDecodeUnrecognizedTagIsUndefined(t *testing.T) {
	word := uint32(0xff) << 24
	inst := Decode(word)
	if inst.Op != OpUndefined {
		t.Fatalf("expected OpUndefined for unrecognized tag, got %v", inst.Op)
	}
}

func TestFromBytesUncheckedToleratesTrailingBytes(t *testing.T) {
	want := Instruction{Op: OpADD, RA: 1, RB: 2, RC: 3}
	wire := EncodeBytes(want)
	padded := append(wire[:], 0xff, 0xff, 0xff)
	got := FromBytesUnchecked(padded)
	if got != want {
		t.Fatalf("trailing bytes changed decode result: got %v, want %v", got, want)
	}
}

func TestFromBytesUncheckedToleratesShortInput(t *testing.T) {
	got := FromBytesUnchecked([]byte{0x01})
	if got.Op != OpADD {
		t.Fatalf("short input should zero-pad the remainder, got opcode %v", got.Op)
	}
	if got.RA != 0 || got.RB != 0 || got.RC != 0 {
		t.Fatalf("short input should decode the zero-padded remainder, got %v", got)
	}
}

func TestFormRRI12ImmediateWidth(t *testing.T) {
	i := Instruction{Op: OpADDI, RA: 1, RB: 2, Imm: 0xfff}
	word := Encode(i)
	got := Decode(word)
	if got.Imm != 0xfff {
		t.Fatalf("12-bit immediate truncated: got %#x", got.Imm)
	}
}

func TestFormRI18ImmediateWidth(t *testing.T) {
	i := Instruction{Op: OpMOVI, RA: 1, Imm: 0x3ffff}
	got := Decode(Encode(i))
	if got.Imm != 0x3ffff {
		t.Fatalf("18-bit immediate truncated: got %#x", got.Imm)
	}
}
