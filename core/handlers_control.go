package core

func init() {
	RegisterHandler(OpJI, handleJI)
	RegisterHandler(OpJNEI, handleJNEI)
	RegisterHandler(OpJNZI, handleJNZI)
	RegisterHandler(OpRET, handleRET)
	RegisterHandler(OpRETD, handleRETD)
	RegisterHandler(OpRVRT, handleRVRT)
	RegisterHandler(OpNOOP, handleNOOP)
	RegisterHandler(OpFLAG, handleFLAG)
}

// jumpTarget converts a word-indexed immediate into a byte address.
func jumpTarget(imm uint32) Word {
	return Word(imm) * InstructionSize
}

// handleJI jumps unconditionally to Imm (JI imm).
func handleJI(vm *VM, i Instruction) (StepOutcome, error) {
	vm.Registers.Set(RegPC, jumpTarget(i.Imm))
	return StepOutcome{Result: ExecJumped}, nil
}

// handleJNEI jumps to Imm if RA != RB (JNEI ra, rb, imm).
func handleJNEI(vm *VM, i Instruction) (StepOutcome, error) {
	if vm.Registers.Get(i.RA) != vm.Registers.Get(i.RB) {
		vm.Registers.Set(RegPC, jumpTarget(i.Imm))
		return StepOutcome{Result: ExecJumped}, nil
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleJNZI jumps to Imm if RA != 0 (JNZI ra, imm).
func handleJNZI(vm *VM, i Instruction) (StepOutcome, error) {
	if vm.Registers.Get(i.RA) != 0 {
		vm.Registers.Set(RegPC, jumpTarget(i.Imm))
		return StepOutcome{Result: ExecJumped}, nil
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleRET returns the word in RA (RET ra). At top level this terminates
// the run; inside a call frame it pops the frame and resumes the caller
// immediately after the CALL instruction.
func handleRET(vm *VM, i Instruction) (StepOutcome, error) {
	val := vm.Registers.Get(i.RA)
	pc := vm.Registers.Get(RegPC)
	vm.Receipts.Push(Receipt{Kind: ReceiptReturn, ID: vm.contractID, Val: val, PC: pc, IS: vm.Registers.Get(RegIS)})

	if vm.currentFP == 0 {
		return StepOutcome{Result: ExecReturn, Word: val}, nil
	}
	if _, err := popCallFrame(vm); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecJumped}, nil
}

// handleRETD returns the memory range [RA, RA+RB) as return data (RETD
// ptr, len). Same top-level/frame-pop split as RET.
func handleRETD(vm *VM, i Instruction) (StepOutcome, error) {
	r := NewMemoryRange(vm.Registers.Get(i.RA), vm.Registers.Get(i.RB))
	if err := vm.Memory.VerifyInBounds(r); err != nil {
		return StepOutcome{}, err
	}
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Retd, r.Len); err != nil {
		return StepOutcome{}, err
	}
	vm.Receipts.Push(Receipt{Kind: ReceiptReturnData, ID: vm.contractID, RA: r.Start, RB: r.Len, PC: vm.Registers.Get(RegPC), IS: vm.Registers.Get(RegIS)})

	if vm.currentFP == 0 {
		return StepOutcome{Result: ExecReturnData, Range: r}, nil
	}
	if _, err := popCallFrame(vm); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecJumped}, nil
}

// handleRVRT terminates the entire transaction with a revert carrying RA
// (RVRT ra). Unlike RET, a revert at any frame depth unwinds the whole run
// — it never resumes a caller.
func handleRVRT(vm *VM, i Instruction) (StepOutcome, error) {
	val := vm.Registers.Get(i.RA)
	vm.Receipts.Push(Receipt{Kind: ReceiptRevert, ID: vm.contractID, Val: val, PC: vm.Registers.Get(RegPC), IS: vm.Registers.Get(RegIS)})
	return StepOutcome{Result: ExecRevert, Word: val}, nil
}

func handleNOOP(vm *VM, i Instruction) (StepOutcome, error) {
	return StepOutcome{Result: ExecProceed}, nil
}

// handleFLAG overwrites RegFLAG from RA (FLAG ra).
func handleFLAG(vm *VM, i Instruction) (StepOutcome, error) {
	vm.Registers.Set(RegFLAG, vm.Registers.Get(i.RA))
	return StepOutcome{Result: ExecProceed}, nil
}
