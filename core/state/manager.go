package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"github.com/IlliniBlockchain/agora-courts/storage"
)

var rootKey = []byte("meta/state-root")

// Manager is a journaled view over a key-value database. Writes accumulate in
// an in-memory overlay until Commit flushes them as a single atomic batch;
// Discard drops them. Reads always see the overlay first.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
	root    [32]byte
	commits uint64
}

// NewManager opens a manager over db, restoring the last committed root.
func NewManager(db storage.Database) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("state: database required")
	}
	m := &Manager{db: db, pending: make(map[string][]byte)}
	data, err := db.Get(rootKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("state: load root: %w", err)
	default:
		var meta storedRoot
		if err := rlp.DecodeBytes(data, &meta); err != nil {
			return nil, fmt.Errorf("state: decode root: %w", err)
		}
		m.root = meta.Root
		m.commits = meta.Commits
	}
	return m, nil
}

type storedRoot struct {
	Root    [32]byte
	Commits uint64
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) get(hashed []byte) ([]byte, error) {
	if value, ok := m.pending[string(hashed)]; ok {
		return value, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 so every record has a fixed-width key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.pending[string(kvKey(key))] = encoded
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	data, err := m.get(hashed)
	if err != nil {
		return err
	}
	var list [][]byte
	if len(data) > 0 {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return err
		}
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	m.pending[string(hashed)] = encoded
	return nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// Dirty reports the number of uncommitted writes.
func (m *Manager) Dirty() int { return len(m.pending) }

// Root returns the state root as of the last commit.
func (m *Manager) Root() [32]byte { return m.root }

// Commits returns the number of non-empty commits applied so far.
func (m *Manager) Commits() uint64 { return m.commits }

// Discard drops every uncommitted write.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
}

// Commit writes the overlay to the database in one batch and chains the state
// root: root' = blake3(root || sorted (key, len(value), value)...). A commit
// with no pending writes leaves the root unchanged.
func (m *Manager) Commit() ([32]byte, error) {
	if len(m.pending) == 0 {
		return m.root, nil
	}
	keys := make([]string, 0, len(m.pending))
	for k := range m.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hasher := blake3.New(32, nil)
	hasher.Write(m.root[:])
	batch := storage.NewBatch()
	var size [8]byte
	for _, k := range keys {
		value := m.pending[k]
		hasher.Write([]byte(k))
		binary.BigEndian.PutUint64(size[:], uint64(len(value)))
		hasher.Write(size[:])
		hasher.Write(value)
		batch.Put([]byte(k), value)
	}
	var next [32]byte
	copy(next[:], hasher.Sum(nil))
	meta, err := rlp.EncodeToBytes(storedRoot{Root: next, Commits: m.commits + 1})
	if err != nil {
		return m.root, err
	}
	batch.Put(rootKey, meta)
	if err := m.db.Write(batch); err != nil {
		return m.root, fmt.Errorf("state: commit: %w", err)
	}
	m.root = next
	m.commits++
	m.pending = make(map[string][]byte)
	return m.root, nil
}
