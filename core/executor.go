package core

// TransactionKind distinguishes the two transaction shapes the executor
// drives: a Script transaction runs bytecode against existing state, a
// Create transaction deploys a new contract without running any code.
type TransactionKind uint8

const (
	TxScript TransactionKind = iota
	TxCreate
)

// ScriptTransaction is the executor-facing input for running a script: its
// bytecode, the auxiliary data segment it can address, and the gas limit
// charged against GGAS/CGAS.
type ScriptTransaction struct {
	Script     []byte
	ScriptData []byte
	GasLimit   Word
	ID         ContractID // identity recorded against emitted receipts

	// Inputs, Outputs, and Witnesses mirror the transaction's declared
	// access list: every contract a CALL may reach must appear among
	// Inputs, and every input's witness index (if any) must resolve
	// against Witnesses. Maturity, if nonzero, is the minimum block
	// height at which this transaction may execute. All four are
	// optional: with none of them set the maturity and input checks pass
	// trivially, but the declared-contract set is then empty, so every
	// CALL the script makes fails with PanicContractNotInInputs.
	Inputs    []TxInput
	Outputs   []TxOutput
	Witnesses [][]byte
	Maturity  Word
}

// CreateTransaction is the executor-facing input for deploying a contract.
type CreateTransaction struct {
	Salt         Bytes32
	StorageSlots map[Bytes32]Bytes32
	Code         []byte

	Inputs    []TxInput
	Outputs   []TxOutput
	Witnesses [][]byte
	Maturity  Word
}

// StateTransition is the result of driving one transaction through the
// executor: the terminal VM state, the full receipts log and its Merkle
// root, the gas actually consumed, and the staged (not yet committed)
// storage mutations. A caller commits Storage only after validating the
// rest of the block; a reverted or panicked run leaves Storage empty.
type StateTransition struct {
	FinalState   ProgramState
	Receipts     []Receipt
	ReceiptsRoot [32]byte
	GasUsed      Word
	Storage      *StorageOverlay
}

// ExecuteScript runs a script transaction to completion against base,
// returning its StateTransition. A *Bug is returned as a Go error and the
// caller must treat it as a fatal host-level condition, never as a
// transaction outcome; every other termination (success, explicit revert,
// or an instruction panic) is reported inside the returned StateTransition.
func ExecuteScript(base Storage, params ConsensusParams, tx ScriptTransaction) (StateTransition, error) {
	overlay := NewStorageOverlay(base)
	vm := NewVM(overlay, params)
	vm.Init(ContextScript, tx.GasLimit, tx.ID)

	if err := seedScriptMemory(vm, tx.Script, tx.ScriptData); err != nil {
		return StateTransition{}, err
	}

	var state ProgramState
	var runErr error
	if reason := checkMaturity(overlay, tx.Maturity); reason != PanicSuccess {
		runErr = reason
	} else if declared, reason := verifyInputs(overlay, tx.Inputs, tx.Witnesses); reason != PanicSuccess {
		runErr = reason
	} else {
		vm.SetDeclaredContracts(declared)
		state, runErr = vm.Run()
	}

	var bug *Bug
	var reason PanicReason
	switch e := runErr.(type) {
	case nil:
		// success, explicit revert, or return-data — no panic.
	case *Bug:
		bug = e
	case PanicReason:
		reason = e
	default:
		return StateTransition{}, runErr
	}
	if bug != nil {
		return StateTransition{}, bug
	}

	reverted := reason != PanicSuccess || state.Kind == StateRevert
	if reason != PanicSuccess {
		vm.Receipts.Push(Receipt{Kind: ReceiptPanic, ID: vm.ContractID(), Reason: reason, PC: vm.Registers.Get(RegPC), IS: vm.Registers.Get(RegIS)})
	}

	gasUsed := tx.GasLimit - vm.Gas.GGas()
	vm.Receipts.Push(Receipt{Kind: ReceiptScriptResult, GasUsed: gasUsed, Result: Word(reason)})

	if reverted {
		overlay.Discard()
	}

	return StateTransition{
		FinalState:   state,
		Receipts:     vm.Receipts.Entries(),
		ReceiptsRoot: vm.Receipts.Root(),
		GasUsed:      gasUsed,
		Storage:      overlay,
	}, nil
}

// seedScriptMemory grows the stack to cover the script bytecode and the
// script data, then writes the bytecode at address 0 and the data
// immediately after it, leaving SP and SSP just past both.
func seedScriptMemory(vm *VM, script, scriptData []byte) error {
	dataStart := Word(len(script))
	spStart := dataStart + Word(len(scriptData))
	if _, err := vm.Memory.UpdateAllocations(spStart, vm.Registers.Get(RegHP)); err != nil {
		return err
	}
	if err := vm.Memory.ForceWrite(0, script); err != nil {
		return err
	}
	if len(scriptData) > 0 {
		if err := vm.Memory.ForceWrite(dataStart, scriptData); err != nil {
			return err
		}
	}
	vm.Registers.Set(RegSP, spStart)
	vm.Registers.Set(RegSSP, spStart)
	return nil
}

// ExecuteCreate stages a contract deployment against base, deriving the
// contract id from its salt, code root, and initial storage root. It never
// runs any bytecode: a Create transaction's only effect is the deployment
// itself. Calling ExecuteCreate twice for the same inputs without
// committing the first call's overlay stages an identical deployment both
// times.
func ExecuteCreate(base Storage, tx CreateTransaction) (StateTransition, ContractID, error) {
	overlay := NewStorageOverlay(base)

	if reason := checkMaturity(overlay, tx.Maturity); reason != PanicSuccess {
		return StateTransition{}, ContractID{}, reason
	}
	if _, reason := verifyInputs(overlay, tx.Inputs, tx.Witnesses); reason != PanicSuccess {
		return StateTransition{}, ContractID{}, reason
	}

	codeRoot := Sha256Sum(tx.Code)
	stateRoot := storageSlotsRoot(tx.StorageSlots)
	id := deriveContractID(tx.Salt, codeRoot, stateRoot)

	if reason := verifyContractCreatedOutput(tx.Outputs, id); reason != PanicSuccess {
		return StateTransition{}, ContractID{}, reason
	}

	if err := overlay.DeployContract(tx.Salt, tx.StorageSlots, tx.Code, codeRoot, id); err != nil {
		return StateTransition{}, ContractID{}, err
	}

	receipts := NewReceiptsLog()
	return StateTransition{
		FinalState:   ReturnState(1),
		Receipts:     receipts.Entries(),
		ReceiptsRoot: receipts.Root(),
		GasUsed:      0,
		Storage:      overlay,
	}, id, nil
}

func deriveContractID(salt Bytes32, codeRoot, stateRoot [32]byte) ContractID {
	buf := make([]byte, 0, 96)
	buf = append(buf, salt[:]...)
	buf = append(buf, codeRoot[:]...)
	buf = append(buf, stateRoot[:]...)
	return ContractID(Sha256Sum(buf))
}

// storageSlotsRoot computes a deterministic root over a contract's initial
// storage slots by hashing them in ascending key order.
func storageSlotsRoot(slots map[Bytes32]Bytes32) [32]byte {
	if len(slots) == 0 {
		return EmptyReceiptsRoot
	}
	keys := make([]Bytes32, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sortBytes32(keys)
	leaves := make([][]byte, len(keys))
	for i, k := range keys {
		v := slots[k]
		leaf := make([]byte, 0, 64)
		leaf = append(leaf, k[:]...)
		leaf = append(leaf, v[:]...)
		leaves[i] = leaf
	}
	root, err := MerkleRoot(leaves)
	if err != nil {
		panic(err) // leaves are always well-formed fixed-size entries
	}
	return root
}

func sortBytes32(s []Bytes32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && bytes32Less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func bytes32Less(a, b Bytes32) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// VerifyPredicate runs a predicate's bytecode in the restricted
// PredicateStorage context and reports whether it succeeded: a
// predicate succeeds only if it terminates via RET with value 1 before
// running off the end of its allotted code range.
func VerifyPredicate(base Storage, params ConsensusParams, predicate []byte, gasLimit Word) (bool, ProgramState, error) {
	overlay := NewPredicateStorage(base)
	vm := NewVM(overlay, params)
	vm.Init(ContextPredicate, gasLimit, ContractID{})

	if _, err := vm.Memory.UpdateAllocations(Word(len(predicate)), vm.Registers.Get(RegHP)); err != nil {
		return false, ProgramState{}, err
	}
	if err := vm.Memory.ForceWrite(0, predicate); err != nil {
		return false, ProgramState{}, err
	}
	vm.Registers.Set(RegIS, 0)
	vm.Registers.Set(RegPC, 0)

	end := Word(len(predicate))
	for {
		pc := vm.Registers.Get(RegPC)
		if pc >= end {
			return false, ProgramState{}, nil
		}
		outcome, err := vm.Step()
		if err != nil {
			if _, ok := err.(PanicReason); ok {
				return false, ProgramState{}, nil
			}
			return false, ProgramState{}, err
		}
		switch outcome.Result {
		case ExecReturn:
			return outcome.Word == 1, ReturnState(outcome.Word), nil
		case ExecReturnData, ExecRevert:
			return false, ProgramState{}, nil
		}
	}
}
