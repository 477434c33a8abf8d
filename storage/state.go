package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// State is a journaled view over a Database. Values are RLP encoded, and every
// write is recorded in an undo journal so a failed operation can be rolled
// back wholesale with Snapshot/RevertToSnapshot. Engines treat one snapshot
// per public operation as the unit of atomicity.
type State struct {
	db      Database
	journal []journalEntry
}

type journalEntry struct {
	key      string
	previous []byte
	existed  bool
}

// NewState wraps the supplied database in a journaled state view.
func NewState(db Database) *State {
	return &State{db: db}
}

// KVGet decodes the value stored under key into out, reporting whether the key
// was present. A nil out only probes for existence.
func (s *State) KVGet(key []byte, out interface{}) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("state not initialised")
	}
	encoded, ok, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", string(key), err)
	}
	return true, nil
}

// KVPut encodes value with RLP and stores it under key, journaling the prior
// value for rollback.
func (s *State) KVPut(key []byte, value interface{}) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("state not initialised")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", string(key), err)
	}
	previous, existed, err := s.db.Get(key)
	if err != nil {
		return err
	}
	s.journal = append(s.journal, journalEntry{key: string(key), previous: previous, existed: existed})
	return s.db.Put(key, encoded)
}

// KVDelete removes the key, journaling the prior value for rollback.
func (s *State) KVDelete(key []byte) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("state not initialised")
	}
	previous, existed, err := s.db.Get(key)
	if err != nil {
		return err
	}
	if !existed {
		return nil
	}
	s.journal = append(s.journal, journalEntry{key: string(key), previous: previous, existed: true})
	return s.db.Delete(key)
}

// Snapshot marks the current journal position. The returned handle is only
// valid until a revert to an earlier snapshot.
func (s *State) Snapshot() int {
	if s == nil {
		return 0
	}
	return len(s.journal)
}

// RevertToSnapshot undoes every write recorded after the supplied snapshot,
// most recent first.
func (s *State) RevertToSnapshot(snapshot int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("state not initialised")
	}
	if snapshot < 0 || snapshot > len(s.journal) {
		return fmt.Errorf("state: invalid snapshot %d", snapshot)
	}
	for i := len(s.journal) - 1; i >= snapshot; i-- {
		entry := s.journal[i]
		if entry.existed {
			if err := s.db.Put([]byte(entry.key), entry.previous); err != nil {
				return err
			}
			continue
		}
		if err := s.db.Delete([]byte(entry.key)); err != nil {
			return err
		}
	}
	s.journal = s.journal[:snapshot]
	return nil
}

// Commit drops the undo entries recorded since the snapshot was taken. Once
// committed, the snapshot can no longer be reverted to; entries belonging to
// enclosing snapshots are preserved.
func (s *State) Commit(snapshot int) {
	if s == nil || snapshot < 0 || snapshot > len(s.journal) {
		return
	}
	s.journal = s.journal[:snapshot]
}

// DiscardJournal drops accumulated undo entries once an operation is known to
// have committed. Snapshots taken earlier become invalid.
func (s *State) DiscardJournal() {
	if s == nil {
		return
	}
	s.journal = s.journal[:0]
}
