package store

import (
	memdb "github.com/hashicorp/go-memdb"
)

const (
	memDBTable = "entries"
	memDBIndex = "id"
)

func memDBSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memDBTable: {
				Name: memDBTable,
				Indexes: map[string]*memdb.IndexSchema{
					memDBIndex: {
						Name:    memDBIndex,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// MemDBStore keeps entries in a transactional go-memdb table.
type MemDBStore struct {
	db *memdb.MemDB
}

func NewMemDBStore() (Store, error) {
	db, err := memdb.NewMemDB(memDBSchema())
	if err != nil {
		return nil, err
	}
	return NewCasStore(MemDBStore{db: db}), nil
}

func (m MemDBStore) Load(key string) (*Entry, bool, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memDBTable, memDBIndex, key)
	if err != nil || raw == nil {
		return nil, false, err
	}
	return raw.(*Entry), true, nil
}

func (m MemDBStore) InsertIfAbsent(entry *Entry) (bool, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	old, err := txn.First(memDBTable, memDBIndex, entry.Key)
	if err != nil {
		return false, err
	} else if old != nil {
		return false, nil
	}

	if err := txn.Insert(memDBTable, entry); err != nil {
		return false, err
	}
	txn.Commit()
	return true, nil
}

func (m MemDBStore) CompareAndSwap(old, new *Entry) (bool, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	actual, err := txn.First(memDBTable, memDBIndex, old.Key)
	if err != nil {
		return false, err
	} else if actual == nil || actual.(*Entry) != old {
		return false, nil
	}

	if err := txn.Insert(memDBTable, new); err != nil {
		return false, err
	}
	txn.Commit()
	return true, nil
}

func (m MemDBStore) CompareAndDelete(old *Entry) (bool, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()

	actual, err := txn.First(memDBTable, memDBIndex, old.Key)
	if err != nil {
		return false, err
	} else if actual == nil || actual.(*Entry) != old {
		return false, nil
	}

	if err := txn.Delete(memDBTable, actual); err != nil {
		return false, err
	}
	txn.Commit()
	return true, nil
}
