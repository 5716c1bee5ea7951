package fakesessionrepo

import (
	"sync"

	"github.com/jrsteele09/go-bingo-admin/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

type FakeSessionRepo struct {
	records map[string]sessions.Record
	saves   int
	deletes int
	saveErr error
	lock    sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		records: make(map[string]sessions.Record),
	}
}

// FailSaves makes every following Save return err (nil restores normal behaviour)
func (sr *FakeSessionRepo) FailSaves(err error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.saveErr = err
}

func (sr *FakeSessionRepo) Save(key string, record *sessions.Record) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	if sr.saveErr != nil {
		return sr.saveErr
	}
	sr.records[key] = *record
	sr.saves++
	return nil
}

func (sr *FakeSessionRepo) Load(key string) (*sessions.Record, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	record, ok := sr.records[key]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (sr *FakeSessionRepo) Delete(key string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	delete(sr.records, key)
	sr.deletes++
	return nil
}

func (sr *FakeSessionRepo) Saves() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return sr.saves
}

func (sr *FakeSessionRepo) Deletes() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return sr.deletes
}
