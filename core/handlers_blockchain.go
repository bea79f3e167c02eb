package core

func init() {
	RegisterHandler(OpBAL, handleBAL)
	RegisterHandler(OpBHSH, handleBHSH)
	RegisterHandler(OpBHEI, handleBHEI)
	RegisterHandler(OpCB, handleCB)
	RegisterHandler(OpTIME, handleTIME)
	RegisterHandler(OpCALL, handleCALL)
	RegisterHandler(OpCCP, handleCCP)
	RegisterHandler(OpCROO, handleCROO)
	RegisterHandler(OpCSIZ, handleCSIZ)
	RegisterHandler(OpLDC, handleLDC)
	RegisterHandler(OpLOG, handleLOG)
	RegisterHandler(OpLOGD, handleLOGD)
	RegisterHandler(OpTR, handleTR)
	RegisterHandler(OpTRO, handleTRO)
	RegisterHandler(OpSRW, handleSRW)
	RegisterHandler(OpSRWQ, handleSRWQ)
	RegisterHandler(OpSWW, handleSWW)
	RegisterHandler(OpSWWQ, handleSWWQ)
	RegisterHandler(OpSCWQ, handleSCWQ)
}

// mapStorageErr turns a PredicateStorage denial into its consensus-visible
// panic; any other Storage error (host I/O) passes through unchanged.
func mapStorageErr(err error) error {
	if err == ErrPredicateStorageDenied {
		return PanicContractInstructionNotAllowed
	}
	return err
}

func readBytes32(vm *VM, addr Word) (Bytes32, error) {
	buf, err := vm.Memory.Read(NewMemoryRange(addr, 32))
	if err != nil {
		return Bytes32{}, err
	}
	var b Bytes32
	copy(b[:], buf)
	return b, nil
}

func readContractID(vm *VM, addr Word) (ContractID, error) {
	b, err := readBytes32(vm, addr)
	return ContractID(b), err
}

func readAssetID(vm *VM, addr Word) (AssetID, error) {
	b, err := readBytes32(vm, addr)
	return AssetID(b), err
}

func writeBytes32(vm *VM, addr Word, b Bytes32) error {
	return vm.Memory.Write(vm.ownership(), NewMemoryRange(addr, 32), b[:])
}

// handleBAL sets RA to the balance of the asset at pointer RB held by the
// contract at pointer RC (BAL dest, asset_ptr, contract_ptr).
func handleBAL(vm *VM, i Instruction) (StepOutcome, error) {
	asset, err := readAssetID(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	contract, err := readContractID(vm, vm.Registers.Get(i.RC))
	if err != nil {
		return StepOutcome{}, err
	}
	bal, err := vm.Storage.Balance(contract, asset)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	vm.Registers.Set(i.RA, bal)
	return StepOutcome{Result: ExecProceed}, nil
}

// handleBHSH writes the hash of block RB into memory at pointer RA (BHSH
// dest_ptr, height).
func handleBHSH(vm *VM, i Instruction) (StepOutcome, error) {
	h, err := vm.Storage.BlockHash(vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if err := writeBytes32(vm, vm.Registers.Get(i.RA), h); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleBHEI sets RA to the current block height (BHEI dest).
func handleBHEI(vm *VM, i Instruction) (StepOutcome, error) {
	h, err := vm.Storage.BlockHeight()
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	vm.Registers.Set(i.RA, h)
	return StepOutcome{Result: ExecProceed}, nil
}

// handleCB writes the coinbase contract id into memory at pointer RA (CB
// dest_ptr).
func handleCB(vm *VM, i Instruction) (StepOutcome, error) {
	cb, err := vm.Storage.Coinbase()
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if err := writeBytes32(vm, vm.Registers.Get(i.RA), Bytes32(cb)); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleTIME sets RA to the timestamp of block RB (TIME dest, height).
func handleTIME(vm *VM, i Instruction) (StepOutcome, error) {
	t, err := vm.Storage.Timestamp(vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	vm.Registers.Set(i.RA, t)
	return StepOutcome{Result: ExecProceed}, nil
}

// handleCALL pushes a call frame and transfers control into the contract at
// pointer RA, forwarding amount RB of the asset at pointer RC.
// RD carries the gas to forward (informational only in this design: the
// callee still draws from the shared GGAS/CGAS counters).
func handleCALL(vm *VM, i Instruction) (StepOutcome, error) {
	if vm.context == ContextPredicate {
		return StepOutcome{}, PanicContractInstructionNotAllowed
	}
	contract, err := readContractID(vm, vm.Registers.Get(i.RA))
	if err != nil {
		return StepOutcome{}, err
	}
	if !vm.contractDeclared(contract) {
		return StepOutcome{}, PanicContractNotInInputs
	}
	asset, err := readAssetID(vm, vm.Registers.Get(i.RC))
	if err != nil {
		return StepOutcome{}, err
	}
	amount := vm.Registers.Get(i.RB)

	exists, err := vm.Storage.ContractExists(contract)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if !exists {
		return StepOutcome{}, PanicContractNotFound
	}

	callerBal, err := vm.Storage.Balance(vm.contractID, asset)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if amount > callerBal {
		return StepOutcome{}, PanicNotEnoughBalance
	}

	code, err := vm.Storage.ContractCode(contract)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}

	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Call, Word(len(code))); err != nil {
		return StepOutcome{}, err
	}

	if amount > 0 {
		if _, err := vm.Storage.BalanceSet(vm.contractID, asset, callerBal-amount); err != nil {
			return StepOutcome{}, mapStorageErr(err)
		}
		calleeBal, err := vm.Storage.Balance(contract, asset)
		if err != nil {
			return StepOutcome{}, mapStorageErr(err)
		}
		if _, err := vm.Storage.BalanceSet(contract, asset, calleeBal+amount); err != nil {
			return StepOutcome{}, mapStorageErr(err)
		}
	}

	callerID := vm.contractID
	callPC := vm.Registers.Get(RegPC)

	snapshot := vm.Registers.Snapshot()
	snapshot[RegPC] = callPC + InstructionSize

	frame := CallFrame{
		To:        contract,
		Asset:     asset,
		Amount:    amount,
		Registers: snapshot,
		CodeSize:  Word(len(code)),
		CallerFP:  vm.currentFP,
	}
	if err := pushCallFrame(vm, frame, code); err != nil {
		return StepOutcome{}, err
	}

	vm.context = ContextCall
	vm.Receipts.Push(Receipt{Kind: ReceiptCall, ID: callerID, To: contract, Asset: asset, Amount: amount, PC: callPC})
	return StepOutcome{Result: ExecJumped}, nil
}

// handleCCP copies RD bytes of contract RB's code, starting at offset RC,
// into memory at pointer RA (CCP dst_ptr, contract_ptr, offset, len).
func handleCCP(vm *VM, i Instruction) (StepOutcome, error) {
	contract, err := readContractID(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	offset := vm.Registers.Get(i.RC)
	length := vm.Registers.Get(i.RD)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Ccp, length); err != nil {
		return StepOutcome{}, err
	}
	code, err := vm.Storage.ContractCode(contract)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if offset+length > Word(len(code)) {
		return StepOutcome{}, PanicMemoryOverflow
	}
	dst := NewMemoryRange(vm.Registers.Get(i.RA), length)
	if err := vm.Memory.Write(vm.ownership(), dst, code[offset:offset+length]); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleCROO writes contract RB's code root into memory at pointer RA
// (CROO dest_ptr, contract_ptr).
func handleCROO(vm *VM, i Instruction) (StepOutcome, error) {
	contract, err := readContractID(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	code, err := vm.Storage.ContractCode(contract)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	root := Sha256Sum(code)
	if err := writeBytes32(vm, vm.Registers.Get(i.RA), Bytes32(root)); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleCSIZ sets RA to the code size of contract RB (CSIZ dest,
// contract_ptr).
func handleCSIZ(vm *VM, i Instruction) (StepOutcome, error) {
	contract, err := readContractID(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	code, err := vm.Storage.ContractCode(contract)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Csiz, Word(len(code))); err != nil {
		return StepOutcome{}, err
	}
	vm.Registers.Set(i.RA, Word(len(code)))
	return StepOutcome{Result: ExecProceed}, nil
}

// handleLDC overwrites the shared code window [0, RC) with RC bytes of
// contract RA's code starting at offset RB (LDC contract_ptr, offset, len).
func handleLDC(vm *VM, i Instruction) (StepOutcome, error) {
	contract, err := readContractID(vm, vm.Registers.Get(i.RA))
	if err != nil {
		return StepOutcome{}, err
	}
	offset := vm.Registers.Get(i.RB)
	length := vm.Registers.Get(i.RC)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Ldc, length); err != nil {
		return StepOutcome{}, err
	}
	code, err := vm.Storage.ContractCode(contract)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if offset+length > Word(len(code)) {
		return StepOutcome{}, PanicMemoryOverflow
	}
	if err := vm.Memory.ForceWrite(0, code[offset:offset+length]); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleLOG appends a four-word log receipt (LOG ra, rb, rc, rd).
func handleLOG(vm *VM, i Instruction) (StepOutcome, error) {
	vm.Receipts.Push(Receipt{
		Kind: ReceiptLog, ID: vm.contractID,
		RA: vm.Registers.Get(i.RA), RB: vm.Registers.Get(i.RB),
		RC: vm.Registers.Get(i.RC), RD: vm.Registers.Get(i.RD),
		PC: vm.Registers.Get(RegPC), IS: vm.Registers.Get(RegIS),
	})
	return StepOutcome{Result: ExecProceed}, nil
}

// handleLOGD appends a log receipt carrying the memory range [RC, RC+RD) as
// its data payload, alongside generic words RA/RB (LOGD ra, rb, ptr, len).
func handleLOGD(vm *VM, i Instruction) (StepOutcome, error) {
	r := NewMemoryRange(vm.Registers.Get(i.RC), vm.Registers.Get(i.RD))
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Logd, r.Len); err != nil {
		return StepOutcome{}, err
	}
	data, err := vm.Memory.Read(r)
	if err != nil {
		return StepOutcome{}, err
	}
	vm.Receipts.Push(Receipt{
		Kind: ReceiptLogData, ID: vm.contractID,
		RA: vm.Registers.Get(i.RA), RB: vm.Registers.Get(i.RB),
		Data: data, PC: vm.Registers.Get(RegPC), IS: vm.Registers.Get(RegIS),
	})
	return StepOutcome{Result: ExecProceed}, nil
}

// handleTR transfers amount RB of the asset at pointer RC from the current
// contract's balance to the contract at pointer RA (TR to_ptr, amount,
// asset_ptr).
func handleTR(vm *VM, i Instruction) (StepOutcome, error) {
	to, err := readContractID(vm, vm.Registers.Get(i.RA))
	if err != nil {
		return StepOutcome{}, err
	}
	asset, err := readAssetID(vm, vm.Registers.Get(i.RC))
	if err != nil {
		return StepOutcome{}, err
	}
	amount := vm.Registers.Get(i.RB)
	if err := transferBalance(vm, vm.contractID, to, asset, amount); err != nil {
		return StepOutcome{}, err
	}
	vm.Receipts.Push(Receipt{Kind: ReceiptTransfer, ID: vm.contractID, To: to, Asset: asset, Amount: amount})
	return StepOutcome{Result: ExecProceed}, nil
}

// handleTRO transfers amount RC of the asset at pointer RD from the current
// contract's balance to the contract at pointer RA, recording output index
// RB (TRO to_ptr, output_index, amount, asset_ptr).
func handleTRO(vm *VM, i Instruction) (StepOutcome, error) {
	to, err := readContractID(vm, vm.Registers.Get(i.RA))
	if err != nil {
		return StepOutcome{}, err
	}
	asset, err := readAssetID(vm, vm.Registers.Get(i.RD))
	if err != nil {
		return StepOutcome{}, err
	}
	amount := vm.Registers.Get(i.RC)
	if err := transferBalance(vm, vm.contractID, to, asset, amount); err != nil {
		return StepOutcome{}, err
	}
	vm.Receipts.Push(Receipt{Kind: ReceiptTransferOut, ID: vm.contractID, To: to, Asset: asset, Amount: amount, RA: vm.Registers.Get(i.RB)})
	return StepOutcome{Result: ExecProceed}, nil
}

func transferBalance(vm *VM, from, to ContractID, asset AssetID, amount Word) error {
	fromBal, err := vm.Storage.Balance(from, asset)
	if err != nil {
		return mapStorageErr(err)
	}
	if amount > fromBal {
		return PanicNotEnoughBalance
	}
	if _, err := vm.Storage.BalanceSet(from, asset, fromBal-amount); err != nil {
		return mapStorageErr(err)
	}
	toBal, err := vm.Storage.Balance(to, asset)
	if err != nil {
		return mapStorageErr(err)
	}
	if _, err := vm.Storage.BalanceSet(to, asset, toBal+amount); err != nil {
		return mapStorageErr(err)
	}
	return nil
}

// handleSRW reads one 32-byte storage slot at key pointer RB into dest RA
// (SRW dest, key_ptr).
func handleSRW(vm *VM, i Instruction) (StepOutcome, error) {
	key, err := readBytes32(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	val, err := vm.Storage.StateRead(vm.contractID, key)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	if err := writeBytes32(vm, vm.Registers.Get(i.RA), val); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleSRWQ reads RC consecutive 32-byte slots starting at key pointer RB
// into the buffer at pointer RA, leaving missing slots zeroed and setting
// RegERR to 1 if any slot was missing (SRWQ dest_ptr, key_ptr, count).
func handleSRWQ(vm *VM, i Instruction) (StepOutcome, error) {
	key, err := readBytes32(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	count := uint32(vm.Registers.Get(i.RC))
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Srwq, Word(count)); err != nil {
		return StepOutcome{}, err
	}
	values, allPresent, err := vm.Storage.StateReadRange(vm.contractID, key, count)
	if err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	dest := vm.Registers.Get(i.RA)
	for idx, v := range values {
		if err := writeBytes32(vm, dest+Word(idx)*32, v); err != nil {
			return StepOutcome{}, err
		}
	}
	if allPresent {
		vm.Registers.Set(RegERR, 0)
	} else {
		vm.Registers.Set(RegERR, 1)
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleSWW writes the 32-byte value at pointer RB into the storage slot
// keyed by pointer RA (SWW key_ptr, value_ptr).
func handleSWW(vm *VM, i Instruction) (StepOutcome, error) {
	key, err := readBytes32(vm, vm.Registers.Get(i.RA))
	if err != nil {
		return StepOutcome{}, err
	}
	value, err := readBytes32(vm, vm.Registers.Get(i.RB))
	if err != nil {
		return StepOutcome{}, err
	}
	if _, err := vm.Storage.StateWrite(vm.contractID, key, value); err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleSWWQ writes RC consecutive 32-byte values from the buffer at
// pointer RB into the slots starting at key pointer RA (SWWQ key_ptr,
// values_ptr, count).
func handleSWWQ(vm *VM, i Instruction) (StepOutcome, error) {
	key := vm.Registers.Get(i.RA)
	values := vm.Registers.Get(i.RB)
	count := vm.Registers.Get(i.RC)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Swwq, count); err != nil {
		return StepOutcome{}, err
	}
	keyBytes32, err := readBytes32(vm, key)
	if err != nil {
		return StepOutcome{}, err
	}
	keyWord := bytes32ToWord(keyBytes32)
	for idx := Word(0); idx < count; idx++ {
		v, err := readBytes32(vm, values+idx*32)
		if err != nil {
			return StepOutcome{}, err
		}
		slot := wordToBytes32(keyWord + idx)
		if _, err := vm.Storage.StateWrite(vm.contractID, slot, v); err != nil {
			return StepOutcome{}, mapStorageErr(err)
		}
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleSCWQ clears RB consecutive storage slots starting at key pointer RA
// (SCWQ key_ptr, count).
func handleSCWQ(vm *VM, i Instruction) (StepOutcome, error) {
	key, err := readBytes32(vm, vm.Registers.Get(i.RA))
	if err != nil {
		return StepOutcome{}, err
	}
	count := uint32(vm.Registers.Get(i.RB))
	if _, err := vm.Storage.StateClearRange(vm.contractID, key, count); err != nil {
		return StepOutcome{}, mapStorageErr(err)
	}
	return StepOutcome{Result: ExecProceed}, nil
}
