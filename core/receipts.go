package core

import "encoding/binary"

// ReceiptKind tags the structured event recorded in a Receipt.
type ReceiptKind uint8

const (
	ReceiptCall ReceiptKind = iota
	ReceiptReturn
	ReceiptReturnData
	ReceiptPanic
	ReceiptRevert
	ReceiptLog
	ReceiptLogData
	ReceiptTransfer
	ReceiptTransferOut
	ReceiptScriptResult
	ReceiptMessageOut
	ReceiptMint
	ReceiptBurn
)

// Receipt is a tagged record appended to the receipts log in execution
// order. Every instruction that emits one does so exactly once. Field
// population depends on Kind; zero values are used for fields a receipt
// kind does not carry, matching the reference transaction format.
type Receipt struct {
	Kind ReceiptKind

	ID     ContractID // emitting contract, or the zero id at top level
	To     ContractID // CALL/TRANSFER/TRANSFER_OUT target
	Asset  AssetID
	Amount Word

	RA, RB, RC, RD Word // LOG register snapshot / generic payload words
	Data           []byte

	Val    Word        // RETURN value / RVRT value / MINT-BURN sub id word
	Reason PanicReason // PANIC
	Bug    *Bug        // internal bug surfaced alongside a panic receipt, if any

	PC, IS Word

	GasUsed Word // SCRIPT_RESULT
	Result  Word // SCRIPT_RESULT: 0 success, nonzero panic reason
}

// ReceiptsLog is the append-only ordered sequence of receipts for one
// transaction execution.
type ReceiptsLog struct {
	entries []Receipt
}

func NewReceiptsLog() *ReceiptsLog {
	return &ReceiptsLog{}
}

func (l *ReceiptsLog) Push(r Receipt) {
	l.entries = append(l.entries, r)
}

func (l *ReceiptsLog) Entries() []Receipt {
	return l.entries
}

func (l *ReceiptsLog) Reset() {
	l.entries = l.entries[:0]
}

// CanonicalBytes renders a receipt into the fixed byte layout hashed into
// the receipts root. The layout is deliberately flat and versionless here:
// canonical transaction-level serialization is an external collaborator's
// concern; this is only the byte form the VM core hashes internally.
func (r Receipt) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(r.Kind))
	buf = append(buf, r.ID[:]...)
	buf = append(buf, r.To[:]...)
	buf = append(buf, r.Asset[:]...)
	buf = appendWord(buf, r.Amount)
	buf = appendWord(buf, r.RA)
	buf = appendWord(buf, r.RB)
	buf = appendWord(buf, r.RC)
	buf = appendWord(buf, r.RD)
	buf = appendWord(buf, r.Val)
	buf = append(buf, byte(r.Reason))
	buf = appendWord(buf, r.PC)
	buf = appendWord(buf, r.IS)
	buf = appendWord(buf, r.GasUsed)
	buf = appendWord(buf, r.Result)
	buf = appendWord(buf, Word(len(r.Data)))
	buf = append(buf, r.Data...)
	return buf
}

func appendWord(buf []byte, w Word) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], w)
	return append(buf, tmp[:]...)
}

// Root computes the receipts Merkle root over Hash(CanonicalBytes(r_i)) in
// execution order. An empty log uses the constant empty root.
func (l *ReceiptsLog) Root() [32]byte {
	if len(l.entries) == 0 {
		return EmptyReceiptsRoot
	}
	leaves := make([][]byte, len(l.entries))
	for i, r := range l.entries {
		leaves[i] = r.CanonicalBytes()
	}
	root, err := MerkleRoot(leaves)
	if err != nil {
		// MerkleRoot only errors on an empty leaf set, which the length
		// check above already rules out.
		panic(err)
	}
	return root
}
