package core

// TxInputKind distinguishes the transaction input variants the executor
// must resolve before a script or create transaction runs.
type TxInputKind uint8

const (
	TxInputCoin TxInputKind = iota
	TxInputContract
	TxInputMessage
)

// TxInput is one entry in a transaction's input list. ContractID is only
// meaningful for TxInputContract. WitnessIndex references Witnesses by
// position; a negative value means the input carries no witness (e.g. a
// contract input, which is authorized by the calling script instead).
type TxInput struct {
	Kind         TxInputKind
	ContractID   ContractID
	WitnessIndex int
}

// TxOutputKind distinguishes transaction output variants.
type TxOutputKind uint8

const (
	TxOutputCoin TxOutputKind = iota
	TxOutputContract
	TxOutputContractCreated
)

// TxOutput is one entry in a transaction's output list. ContractID is only
// meaningful for TxOutputContract and TxOutputContractCreated.
type TxOutput struct {
	Kind       TxOutputKind
	ContractID ContractID
}

// checkMaturity reports PanicTransactionMaturity if the chain has not yet
// reached maturity. A zero maturity always passes.
func checkMaturity(storage Storage, maturity Word) PanicReason {
	if maturity == 0 {
		return PanicSuccess
	}
	height, err := storage.BlockHeight()
	if err != nil {
		return PanicInputNotFound
	}
	if height < maturity {
		return PanicTransactionMaturity
	}
	return PanicSuccess
}

// verifyInputs checks that every contract input resolves in storage and
// that every input's witness index (if any) falls within witnesses. On
// success it returns the set of declared contract ids, which the caller
// records on a VM so CALL can enforce that its target was actually
// declared as an input.
func verifyInputs(storage Storage, inputs []TxInput, witnesses [][]byte) (map[ContractID]struct{}, PanicReason) {
	declared := make(map[ContractID]struct{}, len(inputs))
	for _, in := range inputs {
		if in.WitnessIndex >= 0 && in.WitnessIndex >= len(witnesses) {
			return nil, PanicWitnessNotFound
		}
		if in.Kind != TxInputContract {
			continue
		}
		exists, err := storage.ContractExists(in.ContractID)
		if err != nil || !exists {
			return nil, PanicInputNotFound
		}
		declared[in.ContractID] = struct{}{}
	}
	return declared, PanicSuccess
}

// verifyContractCreatedOutput checks that outputs contains a
// TxOutputContractCreated entry matching id, as Create requires before it
// may deploy.
func verifyContractCreatedOutput(outputs []TxOutput, id ContractID) PanicReason {
	for _, out := range outputs {
		if out.Kind == TxOutputContractCreated && out.ContractID == id {
			return PanicSuccess
		}
	}
	return PanicOutputNotFound
}
