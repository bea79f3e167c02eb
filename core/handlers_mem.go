package core

import "encoding/binary"

func init() {
	RegisterHandler(OpCFEI, handleCFEI)
	RegisterHandler(OpCFSI, handleCFSI)
	RegisterHandler(OpALOC, handleALOC)
	RegisterHandler(OpMCP, handleMCP)
	RegisterHandler(OpMCL, handleMCL)
	RegisterHandler(OpMCLI, handleMCLI)
	RegisterHandler(OpMEQ, handleMEQ)
	RegisterHandler(OpLW, handleLW)
	RegisterHandler(OpSW, handleSW)
	RegisterHandler(OpLB, handleLB)
	RegisterHandler(OpSB, handleSB)
}

// chargeNewPages charges gas_costs.memory_page for each page UpdateAllocations
// materialized.
func chargeNewPages(vm *VM, pages Word) error {
	if pages == 0 {
		return nil
	}
	return vm.Gas.Charge(vm.contractID, vm.Registers.Get(RegPC), pages*vm.Params.GasCosts.MemoryPage)
}

// handleCFEI extends the stack by Imm bytes (CFEI n), rounding allocation
// to whole pages.
func handleCFEI(vm *VM, i Instruction) (StepOutcome, error) {
	sp := vm.Registers.Get(RegSP)
	newSP := sp + Word(i.Imm)
	if newSP < sp {
		return StepOutcome{}, PanicMemoryOverflow
	}
	pages, err := vm.Memory.UpdateAllocations(newSP, vm.Registers.Get(RegHP))
	if err != nil {
		return StepOutcome{}, err
	}
	if err := chargeNewPages(vm, pages); err != nil {
		return StepOutcome{}, err
	}
	vm.Registers.Set(RegSP, newSP)
	return StepOutcome{Result: ExecProceed}, nil
}

// handleCFSI shrinks the stack by Imm bytes (CFSI n).
func handleCFSI(vm *VM, i Instruction) (StepOutcome, error) {
	sp := vm.Registers.Get(RegSP)
	ssp := vm.Registers.Get(RegSSP)
	shrink := Word(i.Imm)
	if shrink > sp || sp-shrink < ssp {
		return StepOutcome{}, PanicMemoryOverflow
	}
	vm.Registers.Set(RegSP, sp-shrink)
	return StepOutcome{Result: ExecProceed}, nil
}

// handleALOC extends the heap downward by the byte count held in register
// RA (ALOC r).
func handleALOC(vm *VM, i Instruction) (StepOutcome, error) {
	size := vm.Registers.Get(i.RA)
	hp := vm.Registers.Get(RegHP)
	newHP := hp - size
	if newHP > hp { // underflow
		return StepOutcome{}, PanicMemoryOverflow
	}
	pages, err := vm.Memory.UpdateAllocations(vm.Registers.Get(RegSP), newHP)
	if err != nil {
		return StepOutcome{}, err
	}
	if err := chargeNewPages(vm, pages); err != nil {
		return StepOutcome{}, err
	}
	vm.Registers.Set(RegHP, newHP)
	return StepOutcome{Result: ExecProceed}, nil
}

// handleMCP copies len(RC) bytes from src(RB) to dst(RA); size-dependent
// gas, ownership-checked destination, non-overlapping ranges.
func handleMCP(vm *VM, i Instruction) (StepOutcome, error) {
	length := vm.Registers.Get(i.RC)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Mcp, length); err != nil {
		return StepOutcome{}, err
	}
	dst := NewMemoryRange(vm.Registers.Get(i.RA), length)
	src := NewMemoryRange(vm.Registers.Get(i.RB), length)
	if err := vm.Memory.Copy(vm.ownership(), dst, src); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleMCL clears len(RB) bytes at dst(RA).
func handleMCL(vm *VM, i Instruction) (StepOutcome, error) {
	length := vm.Registers.Get(i.RB)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Mcl, length); err != nil {
		return StepOutcome{}, err
	}
	if err := vm.Memory.Clear(vm.ownership(), NewMemoryRange(vm.Registers.Get(i.RA), length)); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleMCLI clears Imm bytes at dst(RA) (immediate-length variant of MCL).
func handleMCLI(vm *VM, i Instruction) (StepOutcome, error) {
	length := Word(i.Imm)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Mcli, length); err != nil {
		return StepOutcome{}, err
	}
	if err := vm.Memory.Clear(vm.ownership(), NewMemoryRange(vm.Registers.Get(i.RA), length)); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleMEQ compares len(RD) bytes at RB and RC, writing 1/0 to RA.
func handleMEQ(vm *VM, i Instruction) (StepOutcome, error) {
	length := vm.Registers.Get(i.RD)
	if err := vm.Gas.ChargeDependent(vm.contractID, vm.Registers.Get(RegPC), vm.Params.GasCosts.Meq, length); err != nil {
		return StepOutcome{}, err
	}
	a := NewMemoryRange(vm.Registers.Get(i.RB), length)
	b := NewMemoryRange(vm.Registers.Get(i.RC), length)
	eq, err := vm.Memory.Equal(a, b)
	if err != nil {
		return StepOutcome{}, err
	}
	if eq {
		vm.Registers.Set(i.RA, 1)
	} else {
		vm.Registers.Set(i.RA, 0)
	}
	return StepOutcome{Result: ExecProceed}, nil
}

func handleLW(vm *VM, i Instruction) (StepOutcome, error) {
	addr := vm.Registers.Get(i.RB) + Word(i.Imm)*8
	buf, err := vm.Memory.Read(NewMemoryRange(addr, 8))
	if err != nil {
		return StepOutcome{}, err
	}
	vm.Registers.Set(i.RA, binary.BigEndian.Uint64(buf))
	return StepOutcome{Result: ExecProceed}, nil
}

func handleSW(vm *VM, i Instruction) (StepOutcome, error) {
	addr := vm.Registers.Get(i.RA) + Word(i.Imm)*8
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], vm.Registers.Get(i.RB))
	if err := vm.Memory.Write(vm.ownership(), NewMemoryRange(addr, 8), buf[:]); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

func handleLB(vm *VM, i Instruction) (StepOutcome, error) {
	addr := vm.Registers.Get(i.RB) + Word(i.Imm)
	buf, err := vm.Memory.Read(NewMemoryRange(addr, 1))
	if err != nil {
		return StepOutcome{}, err
	}
	vm.Registers.Set(i.RA, Word(buf[0]))
	return StepOutcome{Result: ExecProceed}, nil
}

func handleSB(vm *VM, i Instruction) (StepOutcome, error) {
	addr := vm.Registers.Get(i.RA) + Word(i.Imm)
	b := byte(vm.Registers.Get(i.RB))
	if err := vm.Memory.Write(vm.ownership(), NewMemoryRange(addr, 1), []byte{b}); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}
