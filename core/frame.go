package core

import "encoding/binary"

// CallFrame is serialized on the stack at CALL entry. Its byte layout is
// externally observable via MCP reads and must not drift:
//
//	[0:32)    to           - callee contract id
//	[32:64)   asset_id     - forwarded asset id
//	[64:72)   amount       - forwarded amount (Word)
//	[72:584)  registers    - full 64-register spill (64 * 8 bytes)
//	[584:592) code_size    - size in bytes of the copied callee bytecode (Word)
//	[592:600) caller_fp    - saved caller frame pointer (Word), 0 at top level
const (
	frameRegistersOffset = 72
	FrameByteSize         = frameRegistersOffset + NumRegisters*8 + 16
)

// CallFrame is the decoded, in-memory view of a serialized call frame.
type CallFrame struct {
	To        ContractID
	Asset     AssetID
	Amount    Word
	Registers [NumRegisters]Word
	CodeSize  Word
	CallerFP  Word
}

// Serialize renders f into its fixed FrameByteSize wire form.
func (f CallFrame) Serialize() []byte {
	buf := make([]byte, FrameByteSize)
	copy(buf[0:32], f.To[:])
	copy(buf[32:64], f.Asset[:])
	binary.BigEndian.PutUint64(buf[64:72], f.Amount)
	for i, r := range f.Registers {
		binary.BigEndian.PutUint64(buf[frameRegistersOffset+i*8:frameRegistersOffset+i*8+8], r)
	}
	tail := frameRegistersOffset + NumRegisters*8
	binary.BigEndian.PutUint64(buf[tail:tail+8], f.CodeSize)
	binary.BigEndian.PutUint64(buf[tail+8:tail+16], f.CallerFP)
	return buf
}

// DeserializeCallFrame parses a FrameByteSize buffer back into a CallFrame.
func DeserializeCallFrame(buf []byte) (CallFrame, error) {
	if len(buf) != FrameByteSize {
		return CallFrame{}, NewBug(BugFrameStackCorrupt, "call frame buffer has wrong size")
	}
	var f CallFrame
	copy(f.To[:], buf[0:32])
	copy(f.Asset[:], buf[32:64])
	f.Amount = binary.BigEndian.Uint64(buf[64:72])
	for i := range f.Registers {
		f.Registers[i] = binary.BigEndian.Uint64(buf[frameRegistersOffset+i*8 : frameRegistersOffset+i*8+8])
	}
	tail := frameRegistersOffset + NumRegisters*8
	f.CodeSize = binary.BigEndian.Uint64(buf[tail : tail+8])
	f.CallerFP = binary.BigEndian.Uint64(buf[tail+8 : tail+16])
	return f, nil
}

// pushCallFrame materializes frame on the stack at the current SP, copies
// the callee's bytecode into memory immediately above the frame, and
// switches the VM into the callee's internal context. The frame and the
// code it describes occupy disjoint, non-overlapping regions above the
// caller's own stack top, so neither the frame nor the caller's code below
// it is ever at risk from the copy. It is VM-privileged: the writes bypass
// ownership checks, since frame and code placement are the interpreter's
// own bookkeeping, not bytecode.
func pushCallFrame(vm *VM, frame CallFrame, calleeCode []byte) error {
	addr := vm.Registers.Get(RegSP)
	codeAddr := addr + FrameByteSize
	newSP := codeAddr + Word(len(calleeCode))
	pages, err := vm.Memory.UpdateAllocations(newSP, vm.Registers.Get(RegHP))
	if err != nil {
		return err
	}
	if err := chargeNewPages(vm, pages); err != nil {
		return err
	}
	if err := vm.Memory.ForceWrite(addr, frame.Serialize()); err != nil {
		return err
	}
	if err := vm.Memory.ForceWrite(codeAddr, calleeCode); err != nil {
		return err
	}

	vm.frameHPStack = append(vm.frameHPStack, vm.prevHP)
	vm.frameContractStack = append(vm.frameContractStack, vm.contractID)

	vm.contractID = frame.To
	vm.currentFP = addr
	vm.prevHP = vm.Registers.Get(RegHP)

	vm.Registers.Set(RegFP, addr)
	vm.Registers.Set(RegSSP, newSP)
	vm.Registers.Set(RegSP, newSP)
	vm.Registers.Set(RegBAL, frame.Amount)
	vm.Registers.Set(RegIS, codeAddr)
	vm.Registers.Set(RegPC, codeAddr)
	return nil
}

// popCallFrame restores the caller's register file and bookkeeping saved at
// the matching pushCallFrame. The caller's own code was never moved by the
// nested call (it lives entirely below the popped frame), so restoring the
// full register snapshot is enough to resume it: PC and IS come back from
// the snapshot already pointing into the caller's untouched code region.
// Returns PanicExpectedInternalContext if there is no frame to pop
// (currentFP == 0, i.e. top level).
func popCallFrame(vm *VM) (CallFrame, error) {
	if vm.currentFP == 0 {
		return CallFrame{}, PanicExpectedInternalContext
	}
	buf, err := vm.Memory.Read(NewMemoryRange(vm.currentFP, FrameByteSize))
	if err != nil {
		return CallFrame{}, err
	}
	frame, err := DeserializeCallFrame(buf)
	if err != nil {
		return CallFrame{}, err
	}

	n := len(vm.frameContractStack)
	callerID := vm.frameContractStack[n-1]
	vm.frameContractStack = vm.frameContractStack[:n-1]
	vm.prevHP = vm.frameHPStack[n-1]
	vm.frameHPStack = vm.frameHPStack[:n-1]

	vm.Registers.RestoreAll(frame.Registers)
	vm.currentFP = frame.CallerFP
	vm.contractID = callerID
	if vm.currentFP == 0 {
		vm.context = ContextScript
	} else {
		vm.context = ContextCall
	}

	return frame, nil
}
