package roles

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// MemberRecord is the persisted snapshot of one guild member.
type MemberRecord struct {
	Roles    []string `json:"roles"`
	Nickname string   `json:"nickname"`
}

// Store persists member snapshots, key = "member:<guildID>/<userID>",
// value JSON.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the snapshot store at path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the store.
func (s *Store) Close() error { return s.db.Close() }

func memberKey(guildID, userID string) []byte {
	return []byte("member:" + guildID + "/" + userID)
}

// Save writes a member's snapshot.
func (s *Store) Save(guildID, userID string, rec *MemberRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(memberKey(guildID, userID), buf)
	})
}

// Load reads a member's snapshot. Returns (nil, nil) when none is stored.
func (s *Store) Load(guildID, userID string) (*MemberRecord, error) {
	var out MemberRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(memberKey(guildID, userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
