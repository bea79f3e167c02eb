package core

import "fmt"

// Storage is the abstract collaborator exposing the blockchain-facing
// operations a contract or script can observe. Host I/O errors propagate
// unchanged; they are never turned into PanicReason values by the
// implementation — only the executor/handlers decide how an operation's
// *logical* failure (e.g. "contract not found") maps to a panic.
type Storage interface {
	ContractExists(id ContractID) (bool, error)
	ContractCode(id ContractID) ([]byte, error)

	StateRead(id ContractID, key Bytes32) (Bytes32, error)
	StateReadRange(id ContractID, start Bytes32, n uint32) (values []Bytes32, allPresent bool, err error)
	StateWrite(id ContractID, key Bytes32, value Bytes32) (previouslyPresent bool, err error)
	StateClearRange(id ContractID, start Bytes32, n uint32) (cleared uint32, err error)

	Balance(id ContractID, asset AssetID) (Word, error)
	BalanceSet(id ContractID, asset AssetID, amount Word) (previous Word, err error)

	BlockHash(height Word) (Bytes32, error)
	BlockHeight() (Word, error)
	Coinbase() (ContractID, error)
	Timestamp(height Word) (Word, error)

	DeployContract(salt Bytes32, slots map[Bytes32]Bytes32, code []byte, codeRoot Bytes32, id ContractID) error
}

// ErrPredicateStorageDenied is returned (and mapped by the executor to
// PanicContractInstructionNotAllowed) whenever a predicate attempts any
// blockchain-observing operation.
var ErrPredicateStorageDenied = fmt.Errorf("predicate storage: operation not permitted")

// PredicateStorage wraps a Storage and denies every operation except
// ContractCode, which it passes through to the wrapped Storage for any
// contract id.
type PredicateStorage struct {
	inner Storage
}

func NewPredicateStorage(inner Storage) *PredicateStorage {
	return &PredicateStorage{inner: inner}
}

func (p *PredicateStorage) ContractExists(ContractID) (bool, error) { return false, ErrPredicateStorageDenied }
func (p *PredicateStorage) ContractCode(id ContractID) ([]byte, error) {
	return p.inner.ContractCode(id)
}
func (p *PredicateStorage) StateRead(ContractID, Bytes32) (Bytes32, error) {
	return Bytes32{}, ErrPredicateStorageDenied
}
func (p *PredicateStorage) StateReadRange(ContractID, Bytes32, uint32) ([]Bytes32, bool, error) {
	return nil, false, ErrPredicateStorageDenied
}
func (p *PredicateStorage) StateWrite(ContractID, Bytes32, Bytes32) (bool, error) {
	return false, ErrPredicateStorageDenied
}
func (p *PredicateStorage) StateClearRange(ContractID, Bytes32, uint32) (uint32, error) {
	return 0, ErrPredicateStorageDenied
}
func (p *PredicateStorage) Balance(ContractID, AssetID) (Word, error) {
	return 0, ErrPredicateStorageDenied
}
func (p *PredicateStorage) BalanceSet(ContractID, AssetID, Word) (Word, error) {
	return 0, ErrPredicateStorageDenied
}
func (p *PredicateStorage) BlockHash(Word) (Bytes32, error) { return Bytes32{}, ErrPredicateStorageDenied }
func (p *PredicateStorage) BlockHeight() (Word, error)      { return 0, ErrPredicateStorageDenied }
func (p *PredicateStorage) Coinbase() (ContractID, error)   { return ContractID{}, ErrPredicateStorageDenied }
func (p *PredicateStorage) Timestamp(Word) (Word, error)    { return 0, ErrPredicateStorageDenied }
func (p *PredicateStorage) DeployContract(Bytes32, map[Bytes32]Bytes32, []byte, Bytes32, ContractID) error {
	return ErrPredicateStorageDenied
}

// stateKey addresses one contract storage slot.
type stateKey struct {
	contract ContractID
	slot     Bytes32
}

// StorageOverlay stages mutations for one transaction so that a revert or
// panic is a cheap drop. Insertion order is preserved (via
// `order`) so commit and Merkle-adjacent consumers see deterministic
// iteration regardless of Go's randomized map order.
type StorageOverlay struct {
	base Storage

	writes map[stateKey]Bytes32
	order  []stateKey

	balances     map[stateKey]Word // slot field reused to hold the asset id
	balanceOrder []stateKey

	deployed      []pendingDeployment
	clearedRanges []pendingClear
}

type pendingDeployment struct {
	id       ContractID
	salt     Bytes32
	slots    map[Bytes32]Bytes32
	code     []byte
	codeRoot Bytes32
}

type pendingClear struct {
	contract ContractID
	start    Bytes32
	n        uint32
}

func NewStorageOverlay(base Storage) *StorageOverlay {
	return &StorageOverlay{
		base:     base,
		writes:   make(map[stateKey]Bytes32),
		balances: make(map[stateKey]Word),
	}
}

func (o *StorageOverlay) ContractExists(id ContractID) (bool, error) {
	for _, d := range o.deployed {
		if d.id == id {
			return true, nil
		}
	}
	return o.base.ContractExists(id)
}

func (o *StorageOverlay) ContractCode(id ContractID) ([]byte, error) {
	for _, d := range o.deployed {
		if d.id == id {
			return d.code, nil
		}
	}
	return o.base.ContractCode(id)
}

func (o *StorageOverlay) StateRead(id ContractID, key Bytes32) (Bytes32, error) {
	k := stateKey{contract: id, slot: key}
	if v, ok := o.writes[k]; ok {
		return v, nil
	}
	return o.base.StateRead(id, key)
}

func (o *StorageOverlay) StateReadRange(id ContractID, start Bytes32, n uint32) ([]Bytes32, bool, error) {
	values := make([]Bytes32, n)
	allPresent := true
	base, baseAll, err := o.base.StateReadRange(id, start, n)
	if err != nil {
		return nil, false, err
	}
	copy(values, base)
	allPresent = baseAll
	startWord := bytes32ToWord(start)
	for i := uint32(0); i < n; i++ {
		k := stateKey{contract: id, slot: wordToBytes32(startWord + Word(i))}
		if v, ok := o.writes[k]; ok {
			values[i] = v
		}
	}
	return values, allPresent, nil
}

func (o *StorageOverlay) StateWrite(id ContractID, key Bytes32, value Bytes32) (bool, error) {
	k := stateKey{contract: id, slot: key}
	_, existedInOverlay := o.writes[k]
	if !existedInOverlay {
		o.order = append(o.order, k)
	}
	prevPresent := existedInOverlay
	if !existedInOverlay {
		prev, err := o.base.StateRead(id, key)
		if err != nil {
			return false, err
		}
		prevPresent = prev != (Bytes32{})
	}
	o.writes[k] = value
	return prevPresent, nil
}

func (o *StorageOverlay) StateClearRange(id ContractID, start Bytes32, n uint32) (uint32, error) {
	o.clearedRanges = append(o.clearedRanges, pendingClear{contract: id, start: start, n: n})
	startWord := bytes32ToWord(start)
	var cleared uint32
	for i := uint32(0); i < n; i++ {
		key := wordToBytes32(startWord + Word(i))
		if _, err := o.StateWrite(id, key, Bytes32{}); err == nil {
			cleared++
		}
	}
	return cleared, nil
}

func (o *StorageOverlay) Balance(id ContractID, asset AssetID) (Word, error) {
	k := stateKey{contract: id, slot: Bytes32(asset)}
	if v, ok := o.balances[k]; ok {
		return v, nil
	}
	return o.base.Balance(id, asset)
}

func (o *StorageOverlay) BalanceSet(id ContractID, asset AssetID, amount Word) (Word, error) {
	k := stateKey{contract: id, slot: Bytes32(asset)}
	prev, err := o.Balance(id, asset)
	if err != nil {
		return 0, err
	}
	if _, ok := o.balances[k]; !ok {
		o.balanceOrder = append(o.balanceOrder, k)
	}
	o.balances[k] = amount
	return prev, nil
}

func (o *StorageOverlay) BlockHash(h Word) (Bytes32, error) { return o.base.BlockHash(h) }
func (o *StorageOverlay) BlockHeight() (Word, error)        { return o.base.BlockHeight() }
func (o *StorageOverlay) Coinbase() (ContractID, error)     { return o.base.Coinbase() }
func (o *StorageOverlay) Timestamp(h Word) (Word, error)    { return o.base.Timestamp(h) }

func (o *StorageOverlay) DeployContract(salt Bytes32, slots map[Bytes32]Bytes32, code []byte, codeRoot Bytes32, id ContractID) error {
	o.deployed = append(o.deployed, pendingDeployment{id: id, salt: salt, slots: slots, code: code, codeRoot: codeRoot})
	return nil
}

// Commit applies every staged mutation to the base storage, in the order
// the mutations were staged, then clears the overlay.
func (o *StorageOverlay) Commit() error {
	for _, d := range o.deployed {
		if err := o.base.DeployContract(d.salt, d.slots, d.code, d.codeRoot, d.id); err != nil {
			return err
		}
	}
	for _, k := range o.order {
		if _, err := o.base.StateWrite(k.contract, k.slot, o.writes[k]); err != nil {
			return err
		}
	}
	for _, k := range o.balanceOrder {
		if _, err := o.base.BalanceSet(k.contract, AssetID(k.slot), o.balances[k]); err != nil {
			return err
		}
	}
	o.Discard()
	return nil
}

// Discard drops every staged mutation, leaving the base storage untouched.
func (o *StorageOverlay) Discard() {
	o.writes = make(map[stateKey]Bytes32)
	o.order = nil
	o.balances = make(map[stateKey]Word)
	o.balanceOrder = nil
	o.deployed = nil
	o.clearedRanges = nil
}

// StagedDeployments exposes pending Create mutations for idempotence
// checks: re-running the same Create without committing must produce an
// identical staged set.
func (o *StorageOverlay) StagedDeployments() []ContractID {
	ids := make([]ContractID, len(o.deployed))
	for i, d := range o.deployed {
		ids[i] = d.id
	}
	return ids
}

func bytes32ToWord(b Bytes32) Word {
	var w Word
	for i := 24; i < 32; i++ {
		w = w<<8 | Word(b[i])
	}
	return w
}

func wordToBytes32(w Word) Bytes32 {
	var b Bytes32
	for i := 31; i >= 24; i-- {
		b[i] = byte(w)
		w >>= 8
	}
	return b
}

// InMemoryStorage is a reference Storage implementation grounded in the
// key/value state map pattern used by the interpreter's prior in-memory
// state representation; suitable for tests and the CLI.
type InMemoryStorage struct {
	code      map[ContractID][]byte
	state     map[stateKey]Bytes32
	balances  map[stateKey]Word
	blockHash map[Word]Bytes32
	height    Word
	coinbase  ContractID
	timestamp map[Word]Word
}

func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		code:      make(map[ContractID][]byte),
		state:     make(map[stateKey]Bytes32),
		balances:  make(map[stateKey]Word),
		blockHash: make(map[Word]Bytes32),
		timestamp: make(map[Word]Word),
	}
}

func (s *InMemoryStorage) ContractExists(id ContractID) (bool, error) {
	_, ok := s.code[id]
	return ok, nil
}

func (s *InMemoryStorage) ContractCode(id ContractID) ([]byte, error) {
	c, ok := s.code[id]
	if !ok {
		return nil, PanicContractNotFound
	}
	return c, nil
}

func (s *InMemoryStorage) StateRead(id ContractID, key Bytes32) (Bytes32, error) {
	return s.state[stateKey{contract: id, slot: key}], nil
}

func (s *InMemoryStorage) StateReadRange(id ContractID, start Bytes32, n uint32) ([]Bytes32, bool, error) {
	values := make([]Bytes32, n)
	allPresent := true
	startWord := bytes32ToWord(start)
	for i := uint32(0); i < n; i++ {
		k := stateKey{contract: id, slot: wordToBytes32(startWord + Word(i))}
		v, ok := s.state[k]
		values[i] = v
		if !ok {
			allPresent = false
		}
	}
	return values, allPresent, nil
}

func (s *InMemoryStorage) StateWrite(id ContractID, key Bytes32, value Bytes32) (bool, error) {
	k := stateKey{contract: id, slot: key}
	_, existed := s.state[k]
	s.state[k] = value
	return existed, nil
}

func (s *InMemoryStorage) StateClearRange(id ContractID, start Bytes32, n uint32) (uint32, error) {
	startWord := bytes32ToWord(start)
	var cleared uint32
	for i := uint32(0); i < n; i++ {
		k := stateKey{contract: id, slot: wordToBytes32(startWord + Word(i))}
		if _, ok := s.state[k]; ok {
			delete(s.state, k)
			cleared++
		}
	}
	return cleared, nil
}

func (s *InMemoryStorage) Balance(id ContractID, asset AssetID) (Word, error) {
	return s.balances[stateKey{contract: id, slot: Bytes32(asset)}], nil
}

func (s *InMemoryStorage) BalanceSet(id ContractID, asset AssetID, amount Word) (Word, error) {
	k := stateKey{contract: id, slot: Bytes32(asset)}
	prev := s.balances[k]
	s.balances[k] = amount
	return prev, nil
}

func (s *InMemoryStorage) BlockHash(h Word) (Bytes32, error) { return s.blockHash[h], nil }
func (s *InMemoryStorage) BlockHeight() (Word, error)        { return s.height, nil }
func (s *InMemoryStorage) Coinbase() (ContractID, error)     { return s.coinbase, nil }
func (s *InMemoryStorage) Timestamp(h Word) (Word, error)    { return s.timestamp[h], nil }

func (s *InMemoryStorage) DeployContract(salt Bytes32, slots map[Bytes32]Bytes32, code []byte, codeRoot Bytes32, id ContractID) error {
	s.code[id] = code
	for k, v := range slots {
		s.state[stateKey{contract: id, slot: k}] = v
	}
	return nil
}

// SetHeight and SetCoinbase let tests and the CLI seed deterministic block
// context without going through a full chain-sync path.
func (s *InMemoryStorage) SetHeight(h Word)        { s.height = h }
func (s *InMemoryStorage) SetCoinbase(c ContractID) { s.coinbase = c }
func (s *InMemoryStorage) SetBlockHash(h Word, v Bytes32) { s.blockHash[h] = v }
func (s *InMemoryStorage) SetTimestamp(h Word, t Word)    { s.timestamp[h] = t }
