package core

import "testing"

// TestAddOverflowPanicsWithoutWrappingFlag and its wrapping counterpart
// check that an ADD that overflows panics by default, but wraps and sets
// ERR when F_WRAPPING is set.
func TestAddOverflowPanicsWithoutWrappingFlag(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(20, ^Word(0))
	vm.Registers.Set(21, 1)
	inst := Instruction{Op: OpADD, RA: 22, RB: 20, RC: 21}
	_, err := Dispatch(vm, inst)
	if err != PanicArithmeticOverflow {
		t.Fatalf("expected PanicArithmeticOverflow, got %v", err)
	}
}

func TestAddOverflowWrapsWithWrappingFlag(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(RegFLAG, FlagWrapping)
	vm.Registers.Set(20, ^Word(0))
	vm.Registers.Set(21, 1)
	inst := Instruction{Op: OpADD, RA: 22, RB: 20, RC: 21}
	outcome, err := Dispatch(vm, inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result != ExecProceed {
		t.Fatalf("expected ExecProceed, got %v", outcome.Result)
	}
	if vm.Registers.Get(22) != 0 {
		t.Fatalf("expected wrapped result 0, got %d", vm.Registers.Get(22))
	}
	if vm.Registers.Get(RegERR) != 1 {
		t.Fatalf("expected ERR set to 1 on wrapped overflow")
	}
}

func TestSubOverflowWithUnsafeMathSetsErr(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(RegFLAG, FlagUnsafeMath)
	vm.Registers.Set(20, 1)
	vm.Registers.Set(21, 2)
	inst := Instruction{Op: OpSUB, RA: 22, RB: 20, RC: 21}
	if _, err := Dispatch(vm, inst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(RegERR) != 1 {
		t.Fatalf("expected ERR set on underflow with F_UNSAFEMATH")
	}
}

func TestDivByZeroWithoutFlagsPanics(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(20, 10)
	vm.Registers.Set(21, 0)
	inst := Instruction{Op: OpDIV, RA: 22, RB: 20, RC: 21}
	if _, err := Dispatch(vm, inst); err != PanicArithmeticOverflow {
		t.Fatalf("expected PanicArithmeticOverflow for div by zero, got %v", err)
	}
}

func TestMrooEdgeCases(t *testing.T) {
	vm, _ := newTestVM(t)

	// MROO(0, n>0) = 0
	vm.Registers.Set(20, 0)
	vm.Registers.Set(21, 3)
	if _, err := Dispatch(vm, Instruction{Op: OpMROO, RA: 22, RB: 20, RC: 21}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(22) != 0 {
		t.Fatalf("MROO(0,3) should be 0, got %d", vm.Registers.Get(22))
	}

	// MROO(x, 1) = x
	vm.Registers.Set(20, 42)
	vm.Registers.Set(21, 1)
	if _, err := Dispatch(vm, Instruction{Op: OpMROO, RA: 23, RB: 20, RC: 21}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(23) != 42 {
		t.Fatalf("MROO(42,1) should be 42, got %d", vm.Registers.Get(23))
	}

	// MROO(x, 0) panics: degree zero is undefined.
	vm.Registers.Set(20, 42)
	vm.Registers.Set(21, 0)
	if _, err := Dispatch(vm, Instruction{Op: OpMROO, RA: 24, RB: 20, RC: 21}); err != PanicArithmeticOverflow {
		t.Fatalf("expected PanicArithmeticOverflow for degree-zero root, got %v", err)
	}

	// MROO(27, 3) = 3 (perfect cube)
	vm.Registers.Set(20, 27)
	vm.Registers.Set(21, 3)
	if _, err := Dispatch(vm, Instruction{Op: OpMROO, RA: 25, RB: 20, RC: 21}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(25) != 3 {
		t.Fatalf("MROO(27,3) should be 3, got %d", vm.Registers.Get(25))
	}
}

func TestMlogEdgeCases(t *testing.T) {
	vm, _ := newTestVM(t)

	// MLOG(0, _) panics.
	vm.Registers.Set(20, 0)
	vm.Registers.Set(21, 2)
	if _, err := Dispatch(vm, Instruction{Op: OpMLOG, RA: 22, RB: 20, RC: 21}); err != PanicArithmeticOverflow {
		t.Fatalf("expected PanicArithmeticOverflow for MLOG(0,_), got %v", err)
	}

	// MLOG(_, base<=1) panics.
	vm.Registers.Set(20, 8)
	vm.Registers.Set(21, 1)
	if _, err := Dispatch(vm, Instruction{Op: OpMLOG, RA: 22, RB: 20, RC: 21}); err != PanicArithmeticOverflow {
		t.Fatalf("expected PanicArithmeticOverflow for base<=1, got %v", err)
	}

	// MLOG(8, 2) = 3
	vm.Registers.Set(20, 8)
	vm.Registers.Set(21, 2)
	if _, err := Dispatch(vm, Instruction{Op: OpMLOG, RA: 22, RB: 20, RC: 21}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(22) != 3 {
		t.Fatalf("MLOG(8,2) should be 3, got %d", vm.Registers.Get(22))
	}
}

func TestMoveAndNotUseSharedSourceRegisterEncoding(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(5, 0xff)
	mv := Decode(Encode(Instruction{Op: OpMOVE, RA: 6, Imm: 5}))
	if _, err := Dispatch(vm, mv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(6) != 0xff {
		t.Fatalf("MOVE did not copy source register, got %d", vm.Registers.Get(6))
	}

	not := Decode(Encode(Instruction{Op: OpNOT, RA: 7, Imm: 5}))
	if _, err := Dispatch(vm, not); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(7) != ^Word(0xff) {
		t.Fatalf("NOT did not complement source register, got %#x", vm.Registers.Get(7))
	}
}
