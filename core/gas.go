package core

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DependentCost is a size-dependent gas cost of the form base + arg/dep_per_unit.
type DependentCost struct {
	Base       Word
	DepPerUnit Word
}

// Charge computes the gas to charge for a dependent-cost instruction given
// its size argument. Integer division truncates.
func (d DependentCost) Charge(arg Word) Word {
	if d.DepPerUnit == 0 {
		return d.Base
	}
	return d.Base + arg/d.DepPerUnit
}

// GasCosts is the flat mapping from opcode to cost, immutable per VM
// instantiation and supplied by consensus parameters.
type GasCosts struct {
	Add, Addi, And, Andi, Div, Divi, Eq, Exp, Expi, Gt, Lt       Word
	Mlog, Mroo, Mod, Modi, Move, Movi, Mul, Muli, Not, Or, Ori   Word
	Sll, Slli, Srl, Srli, Sub, Subi, Xor, Xori                   Word
	Ji, Jnei, Jnzi, Ret, Rvrt, Noop, Flag                        Word
	Cfei, Cfsi, Lb, Lw, Aloc, Sb, Sw                              Word
	Bal, Bhsh, Bhei, Cb, Time, Croo                               Word
	Srw, Sww, Scwq                                                Word
	Ecr, K256, S256                                               Word
	MemoryPage                                                    Word

	Call DependentCost
	Ccp  DependentCost
	Csiz DependentCost
	Ldc  DependentCost
	Logd DependentCost
	Mcl  DependentCost
	Mcli DependentCost
	Mcp  DependentCost
	Meq  DependentCost
	Retd DependentCost
	Smo  DependentCost
	Srwq DependentCost
	Swwq DependentCost

	// Overrides lets consensus parameters bump individual opcode costs
	// without redefining the whole schedule; keyed by lowercase mnemonic
	// as found in the configuration file (see pkg/config).
	Overrides map[string]Word
}

// DefaultGasCosts returns the embedded default schedule, grounded on the
// reference implementation's published benchmark-derived costs.
func DefaultGasCosts() GasCosts {
	return GasCosts{
		Add: 1, Addi: 1, And: 1, Andi: 1, Div: 1, Divi: 1, Eq: 1, Exp: 1, Expi: 1, Gt: 1, Lt: 1,
		Mlog: 1, Mroo: 2, Mod: 1, Modi: 1, Move: 1, Movi: 1, Mul: 1, Muli: 1, Not: 1, Or: 1, Ori: 1,
		Sll: 1, Slli: 1, Srl: 1, Srli: 1, Sub: 1, Subi: 1, Xor: 1, Xori: 1,
		Ji: 1, Jnei: 1, Jnzi: 1, Ret: 61, Rvrt: 61, Noop: 1, Flag: 1,
		Cfei: 1, Cfsi: 1, Lb: 1, Lw: 1, Aloc: 1, Sb: 1, Sw: 1,
		Bal: 21, Bhsh: 1, Bhei: 1, Cb: 2, Time: 1, Croo: 28,
		Srw: 23, Sww: 79, Scwq: 11,
		Ecr: 1703, K256: 19, S256: 5,
		MemoryPage: 1,

		Call: DependentCost{Base: 116, DepPerUnit: 14},
		Ccp:  DependentCost{Base: 24, DepPerUnit: 13},
		Csiz: DependentCost{Base: 17, DepPerUnit: 15},
		Ldc:  DependentCost{Base: 23, DepPerUnit: 14},
		Logd: DependentCost{Base: 46, DepPerUnit: 19},
		Mcl:  DependentCost{Base: 1, DepPerUnit: 2359},
		Mcli: DependentCost{Base: 1, DepPerUnit: 2322},
		Mcp:  DependentCost{Base: 1, DepPerUnit: 1235},
		Meq:  DependentCost{Base: 1, DepPerUnit: 2343},
		Retd: DependentCost{Base: 65, DepPerUnit: 19},
		Smo:  DependentCost{Base: 84, DepPerUnit: 13},
		Srwq: DependentCost{Base: 54, DepPerUnit: 2},
		Swwq: DependentCost{Base: 72, DepPerUnit: 2},
	}
}

// ForOpcode returns the flat cost for a fixed-cost opcode, or false for
// dependent/unknown opcodes. Overrides are consulted first.
func (g GasCosts) ForOpcode(op Opcode) (Word, bool) {
	if g.Overrides != nil {
		if v, ok := g.Overrides[op.String()]; ok {
			return v, true
		}
	}
	switch op {
	case OpADD, OpADDI:
		return pick(op == OpADDI, g.Addi, g.Add), true
	case OpSUB, OpSUBI:
		return pick(op == OpSUBI, g.Subi, g.Sub), true
	case OpMUL, OpMULI:
		return pick(op == OpMULI, g.Muli, g.Mul), true
	case OpDIV, OpDIVI:
		return pick(op == OpDIVI, g.Divi, g.Div), true
	case OpMOD, OpMODI:
		return pick(op == OpMODI, g.Modi, g.Mod), true
	case OpAND, OpANDI:
		return pick(op == OpANDI, g.Andi, g.And), true
	case OpOR, OpORI:
		return pick(op == OpORI, g.Ori, g.Or), true
	case OpXOR, OpXORI:
		return pick(op == OpXORI, g.Xori, g.Xor), true
	case OpSLL, OpSLLI:
		return pick(op == OpSLLI, g.Slli, g.Sll), true
	case OpSRL, OpSRLI:
		return pick(op == OpSRLI, g.Srli, g.Srl), true
	case OpEQ:
		return g.Eq, true
	case OpGT:
		return g.Gt, true
	case OpLT:
		return g.Lt, true
	case OpNOT:
		return g.Not, true
	case OpMOVE:
		return g.Move, true
	case OpMOVI:
		return g.Movi, true
	case OpMLOG:
		return g.Mlog, true
	case OpMROO:
		return g.Mroo, true
	case OpJI:
		return g.Ji, true
	case OpJNEI:
		return g.Jnei, true
	case OpJNZI:
		return g.Jnzi, true
	case OpRET:
		return g.Ret, true
	case OpRVRT:
		return g.Rvrt, true
	case OpNOOP:
		return g.Noop, true
	case OpFLAG:
		return g.Flag, true
	case OpCFEI:
		return g.Cfei, true
	case OpCFSI:
		return g.Cfsi, true
	case OpLB:
		return g.Lb, true
	case OpLW:
		return g.Lw, true
	case OpALOC:
		return g.Aloc, true
	case OpSB:
		return g.Sb, true
	case OpSW:
		return g.Sw, true
	case OpBAL:
		return g.Bal, true
	case OpBHSH:
		return g.Bhsh, true
	case OpBHEI:
		return g.Bhei, true
	case OpCB:
		return g.Cb, true
	case OpTIME:
		return g.Time, true
	case OpCROO:
		return g.Croo, true
	case OpSRW:
		return g.Srw, true
	case OpSWW:
		return g.Sww, true
	case OpSCWQ:
		return g.Scwq, true
	case OpECR:
		return g.Ecr, true
	case OpK256:
		return g.K256, true
	case OpS256:
		return g.S256, true
	default:
		return 0, false
	}
}

func pick(cond bool, a, b Word) Word {
	if cond {
		return a
	}
	return b
}

// Profiler observes each gas charge. It never alters VM state and must
// never panic; a misbehaving profiler is a bug in the host, not the VM.
type Profiler interface {
	ObserveCharge(runID uuid.UUID, contract ContractID, pc Word, charged Word)
}

// NoopProfiler discards every observation. It is the zero-cost default.
type NoopProfiler struct{}

func (NoopProfiler) ObserveCharge(uuid.UUID, ContractID, Word, Word) {}

// LogrusProfiler logs each charge at debug level. Profiling is diagnostic
// only: callers must obtain gas accounting from GasMeter, never by scraping
// these log lines.
type LogrusProfiler struct {
	Logger *logrus.Entry
	RunID  uuid.UUID
}

func NewLogrusProfiler(logger *logrus.Entry) *LogrusProfiler {
	return &LogrusProfiler{Logger: logger, RunID: uuid.New()}
}

func (p *LogrusProfiler) ObserveCharge(runID uuid.UUID, contract ContractID, pc Word, charged Word) {
	p.Logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"contract": contract,
		"pc":       pc,
		"charged":  charged,
	}).Debug("gas charged")
}

// GasMeter tracks the two-tier gas counters and charges against them.
type GasMeter struct {
	ggas     Word
	cgas     Word
	profiler Profiler
	runID    uuid.UUID
}

func NewGasMeter(initial Word, profiler Profiler) *GasMeter {
	if profiler == nil {
		profiler = NoopProfiler{}
	}
	return &GasMeter{ggas: initial, cgas: initial, profiler: profiler, runID: uuid.New()}
}

func (m *GasMeter) GGas() Word { return m.ggas }
func (m *GasMeter) CGas() Word { return m.cgas }

// SetRemaining sets both counters to the same value; used for predicate
// verification and tests where GGAS == CGAS by construction.
func (m *GasMeter) SetRemaining(gas Word) {
	m.ggas = gas
	m.cgas = gas
}

// Charge applies the two-tier accounting rule: a fatal internal bug if
// CGAS <= GGAS is already broken, PanicOutOfGas if the charge exceeds
// CGAS, otherwise a symmetric deduction from both counters.
func (m *GasMeter) Charge(contract ContractID, pc Word, gas Word) error {
	if m.cgas > m.ggas {
		return NewBug(BugGasInvariantViolated, "CGAS exceeded GGAS at charge time")
	}
	m.profiler.ObserveCharge(m.runID, contract, pc, gas)
	if gas > m.cgas {
		m.ggas -= m.cgas
		m.cgas = 0
		return PanicOutOfGas
	}
	m.cgas -= gas
	m.ggas -= gas
	return nil
}

// ChargeDependent charges a size-dependent cost, computing the charge from
// arg first so the profiler observes the actual amount charged.
func (m *GasMeter) ChargeDependent(contract ContractID, pc Word, cost DependentCost, arg Word) error {
	return m.Charge(contract, pc, cost.Charge(arg))
}
