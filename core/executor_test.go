package core

import "testing"

func TestVerifyPredicateSucceedsOnReturnOne(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	predicate := assemble(
		Instruction{Op: OpMOVI, RA: 16, Imm: 1},
		Instruction{Op: OpRET, RA: 16},
	)
	ok, state, err := VerifyPredicate(storage, params, predicate, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected predicate to succeed")
	}
	if state.Kind != StateReturn || state.Word != 1 {
		t.Fatalf("expected Return(1), got kind=%v word=%d", state.Kind, state.Word)
	}
}

func TestVerifyPredicateFailsOnReturnZero(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	predicate := assemble(
		Instruction{Op: OpMOVI, RA: 16, Imm: 0},
		Instruction{Op: OpRET, RA: 16},
	)
	ok, _, err := VerifyPredicate(storage, params, predicate, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected predicate returning 0 to fail")
	}
}

func TestVerifyPredicateFailsOnRunningOffTheEnd(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	predicate := assemble(Instruction{Op: OpNOOP})
	ok, _, err := VerifyPredicate(storage, params, predicate, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected a predicate with no RET to fail by running off the end")
	}
}

func TestVerifyPredicateFailsOnPanicWithoutPropagatingIt(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	// DIV by zero panics; the predicate must report failure, not surface the
	// panic as a Go error.
	predicate := assemble(
		Instruction{Op: OpMOVI, RA: 16, Imm: 1},
		Instruction{Op: OpMOVI, RA: 17, Imm: 0},
		Instruction{Op: OpDIV, RA: 18, RB: 16, RC: 17},
		Instruction{Op: OpRET, RA: 18},
	)
	ok, _, err := VerifyPredicate(storage, params, predicate, 1_000_000)
	if err != nil {
		t.Fatalf("a bytecode panic must not surface as a Go error, got %v", err)
	}
	if ok {
		t.Fatalf("expected the panicked predicate to fail")
	}
}

func TestVerifyPredicateDeniesStorageAccess(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	// BHEI touches Storage.BlockHeight, denied inside a predicate.
	predicate := assemble(Instruction{Op: OpBHEI, RA: 16})
	ok, _, err := VerifyPredicate(storage, params, predicate, 1_000_000)
	if err != nil {
		t.Fatalf("a denied storage op must fail as a predicate failure, not a Go error, got %v", err)
	}
	if ok {
		t.Fatalf("expected predicate storage denial to fail the predicate")
	}
}

// TestExecuteScriptGasExactlyExhausted checks that a script whose single
// instruction costs exactly the gas limit terminates successfully with
// both counters landing at precisely 0.
func TestExecuteScriptGasExactlyExhausted(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	script := assemble(Instruction{Op: OpRET, RA: RegZero})
	tx := ScriptTransaction{Script: script, GasLimit: params.GasCosts.Ret}

	transition, err := ExecuteScript(storage, params, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transition.GasUsed != params.GasCosts.Ret {
		t.Fatalf("expected gas used to equal the RET cost exactly, got %d", transition.GasUsed)
	}
	if transition.FinalState.Kind != StateReturn {
		t.Fatalf("expected a successful return, got kind=%v", transition.FinalState.Kind)
	}
	last := transition.Receipts[len(transition.Receipts)-1]
	if last.Kind != ReceiptScriptResult || last.Result != Word(PanicSuccess) {
		t.Fatalf("expected a trailing success script_result receipt, got %v", last)
	}
}

func TestExecuteScriptOutOfGasReverts(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	script := assemble(Instruction{Op: OpRET, RA: RegZero})
	tx := ScriptTransaction{Script: script, GasLimit: params.GasCosts.Ret - 1}

	transition, err := ExecuteScript(storage, params, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := transition.Receipts[len(transition.Receipts)-1]
	if last.Result != Word(PanicOutOfGas) {
		t.Fatalf("expected script_result to carry PanicOutOfGas, got %d", last.Result)
	}
	penultimate := transition.Receipts[len(transition.Receipts)-2]
	if penultimate.Kind != ReceiptPanic || penultimate.Reason != PanicOutOfGas {
		t.Fatalf("expected a panic receipt just before script_result, got %v", penultimate)
	}
	if len(transition.Storage.StagedDeployments()) != 0 {
		t.Fatalf("a reverted run must not leave staged storage")
	}
}

func TestExecuteScriptExplicitRevertEmitsRevertReceiptNotPanic(t *testing.T) {
	storage := NewInMemoryStorage()
	params := DefaultConsensusParams()
	script := assemble(
		Instruction{Op: OpMOVI, RA: 16, Imm: 9},
		Instruction{Op: OpRVRT, RA: 16},
	)
	tx := ScriptTransaction{Script: script, GasLimit: params.MaxGasPerTx}

	transition, err := ExecuteScript(storage, params, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transition.FinalState.Kind != StateRevert || transition.FinalState.Word != 9 {
		t.Fatalf("expected Revert(9), got kind=%v word=%d", transition.FinalState.Kind, transition.FinalState.Word)
	}
	found := false
	for _, r := range transition.Receipts {
		if r.Kind == ReceiptRevert {
			found = true
		}
		if r.Kind == ReceiptPanic {
			t.Fatalf("an explicit RVRT is not a panic; no panic receipt should be emitted")
		}
	}
	if !found {
		t.Fatalf("expected a revert receipt")
	}
}

// TestSRWQPartialMiss checks that reading a range of storage slots where
// only some are present zero-fills the rest and sets ERR to 1.
func TestSRWQPartialMiss(t *testing.T) {
	vm, storage := newTestVM(t)
	vm.contractID = ContractID{4}

	present := wordToBytes32(5)
	value := Bytes32{0xaa, 0xbb, 0xcc}
	if _, err := storage.StateWrite(vm.contractID, present, value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const keyAddr, destAddr = 1000, 2000
	if err := vm.Memory.ForceWrite(keyAddr, present[:]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vm.Registers.Set(30, destAddr)
	vm.Registers.Set(31, keyAddr)
	vm.Registers.Set(32, 3)

	if _, err := Dispatch(vm, Instruction{Op: OpSRWQ, RA: 30, RB: 31, RC: 32}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Registers.Get(RegERR) != 1 {
		t.Fatalf("expected ERR=1 on a partial miss")
	}

	first, err := vm.Memory.Read(NewMemoryRange(destAddr, 32))
	if err != nil || bytes32FromSlice(first) != value {
		t.Fatalf("expected the present slot's value at the first output word, got %v (err %v)", first, err)
	}
	second, err := vm.Memory.Read(NewMemoryRange(destAddr+32, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range second {
		if b != 0 {
			t.Fatalf("expected a missing slot to read back as all zero, got %v", second)
		}
	}
}

// bytes32FromSlice is a small test-only helper copying a byte slice into a
// fixed Bytes32 for comparison.
func bytes32FromSlice(b []byte) Bytes32 {
	var out Bytes32
	copy(out[:], b)
	return out
}
