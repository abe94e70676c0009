package cvars

import (
	"sync"
)

// Thread safe version of Store.
type StoreTs struct {
	s  Store
	mu sync.Mutex
}

func NewStoreTs() *StoreTs {
	sts := &StoreTs{}
	sts.s.Reset()
	return sts
}

func (sts *StoreTs) Reset() {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	sts.s.Reset()
}

func (sts *StoreTs) Len() int {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.Len()
}

func (sts *StoreTs) Get(name string) string {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.Get(name)
}

func (sts *StoreTs) GetOK(name string) (value string, ok bool) {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.GetOK(name)
}

func (sts *StoreTs) Set(name string, value string) error {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.Set(name, value)
}

func (sts *StoreTs) SetAll(pairs [][2]string) error {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.SetAll(pairs)
}

func (sts *StoreTs) Map() map[string]string {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.Map()
}

func (sts *StoreTs) String() string {
	sts.mu.Lock()
	defer sts.mu.Unlock()
	return sts.s.String()
}
