package core

func init() {
	RegisterHandler(OpADD, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOp3(vm, i, addChecked) })
	RegisterHandler(OpADDI, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOpImm(vm, i, addChecked) })
	RegisterHandler(OpSUB, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOp3(vm, i, subChecked) })
	RegisterHandler(OpSUBI, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOpImm(vm, i, subChecked) })
	RegisterHandler(OpMUL, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOp3(vm, i, mulChecked) })
	RegisterHandler(OpMULI, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOpImm(vm, i, mulChecked) })
	RegisterHandler(OpDIV, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOp3(vm, i, divChecked) })
	RegisterHandler(OpDIVI, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOpImm(vm, i, divChecked) })
	RegisterHandler(OpMOD, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOp3(vm, i, modChecked) })
	RegisterHandler(OpMODI, func(vm *VM, i Instruction) (StepOutcome, error) { return arithOpImm(vm, i, modChecked) })

	RegisterHandler(OpAND, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOp3(vm, i, func(a, b Word) Word { return a & b }) })
	RegisterHandler(OpANDI, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOpImm(vm, i, func(a, b Word) Word { return a & b }) })
	RegisterHandler(OpOR, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOp3(vm, i, func(a, b Word) Word { return a | b }) })
	RegisterHandler(OpORI, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOpImm(vm, i, func(a, b Word) Word { return a | b }) })
	RegisterHandler(OpXOR, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOp3(vm, i, func(a, b Word) Word { return a ^ b }) })
	RegisterHandler(OpXORI, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOpImm(vm, i, func(a, b Word) Word { return a ^ b }) })
	RegisterHandler(OpSLL, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOp3(vm, i, func(a, b Word) Word { return shiftLeft(a, b) }) })
	RegisterHandler(OpSLLI, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOpImm(vm, i, func(a, b Word) Word { return shiftLeft(a, b) }) })
	RegisterHandler(OpSRL, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOp3(vm, i, func(a, b Word) Word { return shiftRight(a, b) }) })
	RegisterHandler(OpSRLI, func(vm *VM, i Instruction) (StepOutcome, error) { return bitwiseOpImm(vm, i, func(a, b Word) Word { return shiftRight(a, b) }) })

	RegisterHandler(OpEQ, func(vm *VM, i Instruction) (StepOutcome, error) {
		return bitwiseOp3(vm, i, func(a, b Word) Word {
			if a == b {
				return 1
			}
			return 0
		})
	})
	RegisterHandler(OpGT, func(vm *VM, i Instruction) (StepOutcome, error) {
		return bitwiseOp3(vm, i, func(a, b Word) Word {
			if a > b {
				return 1
			}
			return 0
		})
	})
	RegisterHandler(OpLT, func(vm *VM, i Instruction) (StepOutcome, error) {
		return bitwiseOp3(vm, i, func(a, b Word) Word {
			if a < b {
				return 1
			}
			return 0
		})
	})
	RegisterHandler(OpNOT, func(vm *VM, i Instruction) (StepOutcome, error) {
		val := vm.Registers.Get(regFromImm(i))
		vm.Registers.Set(i.RA, ^val)
		return StepOutcome{Result: ExecProceed}, nil
	})
	RegisterHandler(OpMOVE, func(vm *VM, i Instruction) (StepOutcome, error) {
		vm.Registers.Set(i.RA, vm.Registers.Get(regFromImm(i)))
		return StepOutcome{Result: ExecProceed}, nil
	})
	RegisterHandler(OpMOVI, func(vm *VM, i Instruction) (StepOutcome, error) {
		vm.Registers.Set(i.RA, Word(i.Imm))
		return StepOutcome{Result: ExecProceed}, nil
	})

	RegisterHandler(OpMROO, func(vm *VM, i Instruction) (StepOutcome, error) { return mrooOp(vm, i) })
	RegisterHandler(OpMLOG, func(vm *VM, i Instruction) (StepOutcome, error) { return mlogOp(vm, i) })
}

// regFromImm extracts the single source register from a formRI18 operand
// (RA is the destination; the source lives where that family keeps its
// lone register slot). Used by single-operand ops that reuse formRI18.
func regFromImm(i Instruction) RegIndex {
	return RegIndex(i.Imm & 0x3f)
}

type checkedBinOp func(a, b Word) (result Word, overflowed bool)

func addChecked(a, b Word) (Word, bool) {
	r := a + b
	return r, r < a
}

func subChecked(a, b Word) (Word, bool) {
	r := a - b
	return r, a < b
}

func mulChecked(a, b Word) (Word, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	return r, r/a != b
}

func divChecked(a, b Word) (Word, bool) {
	if b == 0 {
		return 0, true
	}
	return a / b, false
}

func modChecked(a, b Word) (Word, bool) {
	if b == 0 {
		return 0, true
	}
	return a % b, false
}

func shiftLeft(a, shift Word) Word {
	if shift >= 64 {
		return 0
	}
	return a << shift
}

func shiftRight(a, shift Word) Word {
	if shift >= 64 {
		return 0
	}
	return a >> shift
}

// arithOp3 implements the three-register checked-arithmetic family (ADD,
// SUB, MUL, DIV, MOD): ra = op(rb, rc), with F_WRAPPING/F_UNSAFEMATH
// redirecting overflow into a soft ERR failure.
func arithOp3(vm *VM, i Instruction, op checkedBinOp) (StepOutcome, error) {
	a := vm.Registers.Get(i.RB)
	b := vm.Registers.Get(i.RC)
	return applyChecked(vm, i.RA, a, b, op)
}

// arithOpImm implements the two-register-plus-immediate family (ADDI,
// SUBI, ...): ra = op(rb, imm12).
func arithOpImm(vm *VM, i Instruction, op checkedBinOp) (StepOutcome, error) {
	a := vm.Registers.Get(i.RB)
	b := Word(i.Imm)
	return applyChecked(vm, i.RA, a, b, op)
}

func applyChecked(vm *VM, dest RegIndex, a, b Word, op checkedBinOp) (StepOutcome, error) {
	result, overflowed := op(a, b)
	if overflowed {
		flags := vm.Registers.Get(RegFLAG)
		if flags&(FlagWrapping|FlagUnsafeMath) == 0 {
			return StepOutcome{}, PanicArithmeticOverflow
		}
		vm.Registers.Set(dest, 0)
		vm.Registers.Set(RegERR, 1)
		return StepOutcome{Result: ExecProceed}, nil
	}
	vm.Registers.Set(dest, result)
	vm.Registers.Set(RegERR, 0)
	return StepOutcome{Result: ExecProceed}, nil
}

func bitwiseOp3(vm *VM, i Instruction, op func(a, b Word) Word) (StepOutcome, error) {
	vm.Registers.Set(i.RA, op(vm.Registers.Get(i.RB), vm.Registers.Get(i.RC)))
	return StepOutcome{Result: ExecProceed}, nil
}

func bitwiseOpImm(vm *VM, i Instruction, op func(a, b Word) Word) (StepOutcome, error) {
	vm.Registers.Set(i.RA, op(vm.Registers.Get(i.RB), Word(i.Imm)))
	return StepOutcome{Result: ExecProceed}, nil
}

// mrooOp computes the integer n-th root: ra = floor(rb ** (1/rc)).
// Pinned edge cases (Open Question i, resolved in DESIGN.md):
// MROO(0, n>0) = 0; MROO(x, 0) panics (degree zero is undefined);
// MROO(x, 1) = x.
func mrooOp(vm *VM, i Instruction) (StepOutcome, error) {
	x := vm.Registers.Get(i.RB)
	n := vm.Registers.Get(i.RC)
	if n == 0 {
		return StepOutcome{}, PanicArithmeticOverflow
	}
	if n == 1 {
		vm.Registers.Set(i.RA, x)
		return StepOutcome{Result: ExecProceed}, nil
	}
	if x == 0 {
		vm.Registers.Set(i.RA, 0)
		return StepOutcome{Result: ExecProceed}, nil
	}
	vm.Registers.Set(i.RA, integerNthRoot(x, n))
	return StepOutcome{Result: ExecProceed}, nil
}

// integerNthRoot returns floor(x ** (1/n)) via binary search, avoiding the
// rounding error a floating-point pow/log round trip would introduce.
func integerNthRoot(x, n Word) Word {
	lo, hi := Word(0), x
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if powOverflows(mid, n, x) {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo
}

// powOverflows reports whether mid**n > limit, computed without
// overflowing Word arithmetic.
func powOverflows(mid, n, limit Word) bool {
	if mid <= 1 {
		return false
	}
	var acc Word = 1
	for j := Word(0); j < n; j++ {
		if acc > limit/mid {
			return true
		}
		acc *= mid
	}
	return acc > limit
}

// mlogOp computes the integer logarithm: ra = floor(log_rc(rb)).
// Pinned edge cases (Open Question i): MLOG(0, _) and MLOG(_, base<=1)
// panic — the logarithm is undefined on that domain.
func mlogOp(vm *VM, i Instruction) (StepOutcome, error) {
	x := vm.Registers.Get(i.RB)
	base := vm.Registers.Get(i.RC)
	if x == 0 || base <= 1 {
		return StepOutcome{}, PanicArithmeticOverflow
	}
	var result Word
	acc := Word(1)
	for acc*base <= x && acc <= x/base {
		acc *= base
		result++
	}
	vm.Registers.Set(i.RA, result)
	return StepOutcome{Result: ExecProceed}, nil
}
