package core

// ConsensusParams bundles the chain-wide parameters a VM instance is
// created with: the gas cost schedule and limits that bound a single
// transaction's execution, plus an optional profiler collaborator.
type ConsensusParams struct {
	GasCosts GasCosts

	MaxScriptLength     Word
	MaxScriptDataLength Word
	MaxInstructions     Word

	GasPriceFactor Word
	MaxGasPerTx    Word

	Profiler Profiler
}

// DefaultConsensusParams returns parameters suitable for local development
// and tests: the embedded default gas schedule and generous limits.
func DefaultConsensusParams() ConsensusParams {
	return ConsensusParams{
		GasCosts:            DefaultGasCosts(),
		MaxScriptLength:      1 << 20,
		MaxScriptDataLength:  1 << 20,
		MaxInstructions:      ^Word(0),
		GasPriceFactor:       92,
		MaxGasPerTx:          30_000_000,
	}
}
