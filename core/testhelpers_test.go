package core

// newTestVM builds a VM ready to execute instructions directly via Dispatch,
// with a generous gas budget and both stack and heap materialized a few
// pages deep so handler tests don't need to reason about page growth.
func newTestVM(t interface{ Fatalf(string, ...interface{}) }) (*VM, *InMemoryStorage) {
	storage := NewInMemoryStorage()
	vm := NewVM(storage, DefaultConsensusParams())
	vm.Init(ContextScript, 1_000_000, ContractID{})
	if _, err := vm.Memory.UpdateAllocations(4*VMPageSize, MemSize-4*VMPageSize); err != nil {
		t.Fatalf("unexpected error growing test VM memory: %v", err)
	}
	vm.Registers.Set(RegSP, 4*VMPageSize)
	vm.Registers.Set(RegHP, MemSize-4*VMPageSize)
	return vm, storage
}

// assemble concatenates the big-endian wire form of each instruction into a
// contiguous script.
func assemble(instrs ...Instruction) []byte {
	out := make([]byte, 0, len(instrs)*4)
	for _, i := range instrs {
		w := EncodeBytes(i)
		out = append(out, w[:]...)
	}
	return out
}
