package core

// ProgramState is the terminal state of one dispatch-loop run.
type ProgramState struct {
	Kind  ProgramStateKind
	Word  Word
	Range MemoryRange
}

type ProgramStateKind uint8

const (
	StateReturn ProgramStateKind = iota
	StateReturnData
	StateRevert
)

func ReturnState(w Word) ProgramState         { return ProgramState{Kind: StateReturn, Word: w} }
func ReturnDataState(r MemoryRange) ProgramState { return ProgramState{Kind: StateReturnData, Range: r} }
func RevertState(w Word) ProgramState         { return ProgramState{Kind: StateRevert, Word: w} }

// VM is a single interpreter instance: registers, memory, gas, receipts,
// and a storage collaborator, wired together for the duration of one
// transaction. Lifecycle: created with a Storage and ConsensusParams,
// Init for one transaction, Run to completion, then discarded or
// re-initialized with Init for the next transaction.
type VM struct {
	Registers *Registers
	Memory    *Memory
	Gas       *GasMeter
	Receipts  *ReceiptsLog
	Storage   Storage

	Params ConsensusParams

	context     Context
	currentFP   Word // 0 at top level; address of innermost frame otherwise
	prevHP      Word // heap pointer snapshot before the current frame was pushed
	contractID  ContractID

	// frameHPStack and frameContractStack mirror the on-stack CallFrame
	// pushes/pops for VM-internal bookkeeping (prevHP and the calling
	// contract's id) that has no slot in the externally-observable frame
	// layout in frame.go.
	frameHPStack       []Word
	frameContractStack []ContractID

	// declaredContracts is the set of contract ids the enclosing
	// transaction declared as inputs. A nil map means the caller never
	// supplied an input list (e.g. a handler test driving the VM
	// directly) and CALL's input-membership check is skipped entirely.
	declaredContracts map[ContractID]struct{}

	instructionsExecuted Word
}

// NewVM constructs an interpreter over the given storage collaborator and
// consensus parameters. The VM is not yet initialized for a transaction.
func NewVM(storage Storage, params ConsensusParams) *VM {
	return &VM{
		Registers: NewRegisters(),
		Memory:    NewMemory(),
		Receipts:  NewReceiptsLog(),
		Storage:   storage,
		Params:    params,
		context:   ContextNone,
	}
}

// Init resets all per-transaction state and sets the initial context, gas
// budget, and program/instruction-start pointers.
func (vm *VM) Init(ctx Context, gasLimit Word, contractID ContractID) {
	vm.Registers.Reset()
	vm.Memory.Reset()
	vm.Receipts.Reset()
	vm.Gas = NewGasMeter(gasLimit, vm.profilerOrNoop())
	vm.context = ctx
	vm.currentFP = 0
	vm.prevHP = MemSize
	vm.contractID = contractID
	vm.frameHPStack = vm.frameHPStack[:0]
	vm.frameContractStack = vm.frameContractStack[:0]
	vm.declaredContracts = nil
	vm.instructionsExecuted = 0

	vm.Registers.Set(RegGGAS, gasLimit)
	vm.Registers.Set(RegCGAS, gasLimit)
	vm.Registers.Set(RegHP, MemSize)
	vm.Registers.Set(RegSP, 0)
	vm.Registers.Set(RegSSP, 0)
	vm.Registers.Set(RegFP, 0)
}

func (vm *VM) profilerOrNoop() Profiler {
	if vm.Params.Profiler != nil {
		return vm.Params.Profiler
	}
	return NoopProfiler{}
}

// Clone returns a fresh VM over the given Storage collaborator that shares
// only vm's consensus parameters. The clone does not share register,
// memory, or receipts state with vm.
func (vm *VM) Clone(storage Storage) *VM {
	return NewVM(storage, vm.Params)
}

func (vm *VM) Context() Context   { return vm.context }
func (vm *VM) ContractID() ContractID { return vm.contractID }

// SetDeclaredContracts records the set of contract ids the enclosing
// transaction declared as inputs, for CALL to enforce against. Passing nil
// disables the membership check.
func (vm *VM) SetDeclaredContracts(ids map[ContractID]struct{}) {
	vm.declaredContracts = ids
}

// contractDeclared reports whether id may be called: true when no input
// set was ever supplied (the check is disabled) or when id is in it.
func (vm *VM) contractDeclared(id ContractID) bool {
	if vm.declaredContracts == nil {
		return true
	}
	_, ok := vm.declaredContracts[id]
	return ok
}

// ownership returns the current OwnershipRegisters snapshot, computed
// fresh from the live register file rather than cached, so it can never
// go stale mid-handler.
func (vm *VM) ownership() OwnershipRegisters {
	return OwnershipRegisters{
		SP:      vm.Registers.Get(RegSP),
		SSP:     vm.Registers.Get(RegSSP),
		HP:      vm.Registers.Get(RegHP),
		PrevHP:  vm.prevHP,
		Context: vm.context,
	}
}

// Step performs exactly one dispatch-loop iteration.
func (vm *VM) Step() (StepOutcome, error) {
	pc := vm.Registers.Get(RegPC)
	if pc >= MemSize {
		return StepOutcome{}, PanicMemoryOverflow
	}
	if pc%4 != 0 {
		return StepOutcome{}, PanicInvalidInstruction
	}

	word, err := vm.Memory.Read(NewMemoryRange(pc, InstructionSize))
	if err != nil {
		return StepOutcome{}, err
	}
	inst := DecodeBytes(word)

	cost, hasFlat := vm.Params.GasCosts.ForOpcode(inst.Op)
	if hasFlat {
		if err := vm.Gas.Charge(vm.contractID, pc, cost); err != nil {
			return StepOutcome{}, err
		}
	}
	// Dependent-cost opcodes charge from inside their own handler, where
	// the size argument (a register operand) is actually available.

	outcome, err := Dispatch(vm, inst)
	if err != nil {
		return StepOutcome{}, err
	}

	vm.instructionsExecuted++

	switch outcome.Result {
	case ExecProceed:
		vm.Registers.Set(RegPC, pc+InstructionSize)
	case ExecJumped:
		// handler already set PC
	}
	return outcome, nil
}

// Run executes the dispatch loop to completion, returning the terminal
// ProgramState or a panic/bug error.
func (vm *VM) Run() (ProgramState, error) {
	for {
		outcome, err := vm.Step()
		if err != nil {
			return ProgramState{}, err
		}
		switch outcome.Result {
		case ExecReturn:
			return ReturnState(outcome.Word), nil
		case ExecReturnData:
			return ReturnDataState(outcome.Range), nil
		case ExecRevert:
			return RevertState(outcome.Word), nil
		}
	}
}
