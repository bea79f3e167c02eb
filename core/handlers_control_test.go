package core

import "testing"

func TestJumpInstructions(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(RegPC, 0)
	outcome, err := Dispatch(vm, Instruction{Op: OpJI, Imm: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result != ExecJumped {
		t.Fatalf("expected ExecJumped, got %v", outcome.Result)
	}
	if vm.Registers.Get(RegPC) != 40 { // 10 * InstructionSize
		t.Fatalf("expected PC=40, got %d", vm.Registers.Get(RegPC))
	}
}

func TestJnzNotTakenProceeds(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(20, 0)
	outcome, err := Dispatch(vm, Instruction{Op: OpJNZI, RA: 20, Imm: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result != ExecProceed {
		t.Fatalf("expected the branch not to be taken when RA==0, got %v", outcome.Result)
	}
}

func TestRetAtTopLevelTerminates(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.Registers.Set(20, 7)
	outcome, err := Dispatch(vm, Instruction{Op: OpRET, RA: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result != ExecReturn || outcome.Word != 7 {
		t.Fatalf("expected ExecReturn(7), got %v/%d", outcome.Result, outcome.Word)
	}
	if len(vm.Receipts.Entries()) != 1 || vm.Receipts.Entries()[0].Kind != ReceiptReturn {
		t.Fatalf("expected a single ReceiptReturn to be pushed")
	}
}

func TestRvrtAlwaysTerminatesRegardlessOfFrameDepth(t *testing.T) {
	vm, _ := newTestVM(t)
	vm.currentFP = 12345 // simulate being inside a call frame
	vm.Registers.Set(20, 3)
	outcome, err := Dispatch(vm, Instruction{Op: OpRVRT, RA: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Result != ExecRevert || outcome.Word != 3 {
		t.Fatalf("RVRT must unwind the whole run even mid-frame, got %v/%d", outcome.Result, outcome.Word)
	}
}

// TestCallThenRetRestoresCallerRegistersAndCode exercises the full CALL/RET
// frame discipline: the callee's mutations to its own registers never leak
// back to the caller, and execution resumes exactly after the CALL
// instruction, back in the caller's own untouched code region.
func TestCallThenRetRestoresCallerRegistersAndCode(t *testing.T) {
	storage := NewInMemoryStorage()
	callerID := ContractID{1}
	calleeID := ContractID{9}
	asset := AssetID{}

	callerScript := assemble(
		Instruction{Op: OpMOVI, RA: 21, Imm: 55},
		Instruction{Op: OpCALL, RA: 30, RB: 31, RC: 32, RD: 33},
		Instruction{Op: OpRET, RA: 21},
	)
	calleeCode := assemble(
		Instruction{Op: OpMOVI, RA: 20, Imm: 123},
		Instruction{Op: OpRET, RA: 20},
	)

	if err := storage.DeployContract(Bytes32{}, nil, callerScript, Bytes32{}, callerID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := storage.DeployContract(Bytes32{}, nil, calleeCode, Bytes32{}, calleeID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vm := NewVM(storage, DefaultConsensusParams())
	vm.Init(ContextScript, 1_000_000, callerID)
	if _, err := vm.Memory.UpdateAllocations(4*VMPageSize, MemSize-4*VMPageSize); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vm.Registers.Set(RegSP, 4*VMPageSize)
	vm.Registers.Set(RegHP, MemSize-4*VMPageSize)

	if err := vm.Memory.ForceWrite(0, callerScript); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const contractIDAddr, assetIDAddr = 200, 300
	if err := vm.Memory.ForceWrite(contractIDAddr, calleeID[:]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := vm.Memory.ForceWrite(assetIDAddr, asset[:]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vm.Registers.Set(30, contractIDAddr)
	vm.Registers.Set(31, 0) // amount
	vm.Registers.Set(32, assetIDAddr)

	state, err := vm.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Kind != StateReturn || state.Word != 55 {
		t.Fatalf("expected the caller's RET(55) to be the final state, got kind=%v word=%d", state.Kind, state.Word)
	}
	if vm.ContractID() != callerID {
		t.Fatalf("expected contract id restored to the caller after RET, got %v", vm.ContractID())
	}

	var kinds []ReceiptKind
	for _, r := range vm.Receipts.Entries() {
		kinds = append(kinds, r.Kind)
	}
	if len(kinds) != 3 || kinds[0] != ReceiptCall || kinds[1] != ReceiptReturn || kinds[2] != ReceiptReturn {
		t.Fatalf("expected [call, return, return] receipts, got %v", kinds)
	}
}

// TestCallThroughExecuteScriptWithRealisticInitialSP drives CALL through
// ExecuteScript (and therefore through seedScriptMemory's real, small
// initial SP) with a callee whose code is longer than that initial SP. A
// call frame copier that ever wrote callee code back at address 0 would
// stomp the frame it had just pushed at SP before the callee ran a single
// instruction; this confirms the frame and the callee's code instead land
// in disjoint regions above the caller's stack.
func TestCallThroughExecuteScriptWithRealisticInitialSP(t *testing.T) {
	storage := NewInMemoryStorage()
	calleeID := ContractID{9}
	asset := AssetID{}

	const contractIDAddr = 24 // immediately after the 6-instruction caller script
	const assetIDAddr = contractIDAddr + 32

	callerScript := assemble(
		Instruction{Op: OpMOVI, RA: 21, Imm: 55},
		Instruction{Op: OpMOVI, RA: 30, Imm: contractIDAddr},
		Instruction{Op: OpMOVI, RA: 31, Imm: 0},
		Instruction{Op: OpMOVI, RA: 32, Imm: assetIDAddr},
		Instruction{Op: OpCALL, RA: 30, RB: 31, RC: 32, RD: 33},
		Instruction{Op: OpRET, RA: 21},
	)
	// len(callerScript) + len(scriptData) is the initial SP seedScriptMemory
	// sets (24 + 64 = 88 bytes here). The callee's code below is padded well
	// past that so a regression that writes callee code at address 0 instead
	// of above the pushed frame would corrupt the frame before CALL even
	// transfers control.
	calleeInstrs := make([]Instruction, 0, 25)
	for i := 0; i < 23; i++ {
		calleeInstrs = append(calleeInstrs, Instruction{Op: OpMOVI, RA: 1, Imm: uint32(i)})
	}
	calleeInstrs = append(calleeInstrs,
		Instruction{Op: OpMOVI, RA: 20, Imm: 123},
		Instruction{Op: OpRET, RA: 20},
	)
	calleeCode := assemble(calleeInstrs...)
	if len(calleeCode) <= len(callerScript)+64 {
		t.Fatalf("test setup bug: callee code (%d bytes) must exceed the initial SP to exercise the regression", len(calleeCode))
	}

	if err := storage.DeployContract(Bytes32{}, nil, calleeCode, Bytes32{}, calleeID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scriptData := make([]byte, 64)
	copy(scriptData[0:32], calleeID[:])
	copy(scriptData[32:64], asset[:])

	tx := ScriptTransaction{
		Script:     callerScript,
		ScriptData: scriptData,
		GasLimit:   1_000_000,
		Inputs:     []TxInput{{Kind: TxInputContract, ContractID: calleeID, WitnessIndex: -1}},
	}
	transition, err := ExecuteScript(storage, DefaultConsensusParams(), tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transition.FinalState.Kind != StateReturn || transition.FinalState.Word != 55 {
		t.Fatalf("expected the caller's RET(55) to survive an intact call frame, got kind=%v word=%d",
			transition.FinalState.Kind, transition.FinalState.Word)
	}

	var kinds []ReceiptKind
	for _, r := range transition.Receipts {
		kinds = append(kinds, r.Kind)
	}
	if len(kinds) < 3 || kinds[0] != ReceiptCall || kinds[1] != ReceiptReturn || kinds[2] != ReceiptReturn {
		t.Fatalf("expected a [call, return, return, ...] receipt sequence, got %v", kinds)
	}
}
