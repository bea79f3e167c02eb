package core

import (
	"github.com/ethereum/go-ethereum/crypto"
)

func init() {
	RegisterHandler(OpECR, handleECR)
	RegisterHandler(OpK256, handleK256)
	RegisterHandler(OpS256, handleS256)
}

// handleECR recovers the 64-byte uncompressed public key (sans 0x04 prefix)
// from the 65-byte recoverable signature at pointer RB over the 32-byte
// message hash at pointer RC, writing it to memory at pointer RA (ECR
// dest_ptr, sig_ptr, hash_ptr). An unrecoverable signature panics with
// PanicInvalidAccess rather than surfacing the underlying curve error,
// matching the closed PanicReason vocabulary.
func handleECR(vm *VM, i Instruction) (StepOutcome, error) {
	sigBuf, err := vm.Memory.Read(NewMemoryRange(vm.Registers.Get(i.RB), 65))
	if err != nil {
		return StepOutcome{}, err
	}
	hashBuf, err := vm.Memory.Read(NewMemoryRange(vm.Registers.Get(i.RC), 32))
	if err != nil {
		return StepOutcome{}, err
	}

	pub, err := crypto.Ecrecover(hashBuf, sigBuf)
	if err != nil {
		return StepOutcome{}, PanicInvalidAccess
	}
	// pub is 65 bytes: 0x04 prefix followed by the 64-byte (x, y) point.
	dst := NewMemoryRange(vm.Registers.Get(i.RA), 64)
	if err := vm.Memory.Write(vm.ownership(), dst, pub[1:]); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleK256 writes the 32-byte Keccak-256 hash of the RC bytes at pointer
// RB into memory at pointer RA (K256 dest_ptr, data_ptr, len).
func handleK256(vm *VM, i Instruction) (StepOutcome, error) {
	data, err := vm.Memory.Read(NewMemoryRange(vm.Registers.Get(i.RB), vm.Registers.Get(i.RC)))
	if err != nil {
		return StepOutcome{}, err
	}
	h := crypto.Keccak256(data)
	if err := vm.Memory.Write(vm.ownership(), NewMemoryRange(vm.Registers.Get(i.RA), 32), h); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}

// handleS256 writes the 32-byte SHA-256 hash of the RC bytes at pointer RB
// into memory at pointer RA (S256 dest_ptr, data_ptr, len).
func handleS256(vm *VM, i Instruction) (StepOutcome, error) {
	data, err := vm.Memory.Read(NewMemoryRange(vm.Registers.Get(i.RB), vm.Registers.Get(i.RC)))
	if err != nil {
		return StepOutcome{}, err
	}
	h := Sha256Sum(data)
	if err := vm.Memory.Write(vm.ownership(), NewMemoryRange(vm.Registers.Get(i.RA), 32), h[:]); err != nil {
		return StepOutcome{}, err
	}
	return StepOutcome{Result: ExecProceed}, nil
}
