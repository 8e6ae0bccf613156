package users

import (
	"context"
	"sync"
)

// MemoryStore keeps users in insertion order for the lifetime of the process.
type MemoryStore struct {
	mutex sync.RWMutex
	users []User
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Create(_ context.Context, user User) (User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.indexByEmail(user.Email) >= 0 {
		return User{}, ErrConflict
	}

	m.users = append(m.users, user)
	return user, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	i := m.indexByID(id)
	if i < 0 {
		return User{}, ErrNotFound
	}
	return m.users[i], nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	i := m.indexByEmail(email)
	if i < 0 {
		return User{}, ErrNotFound
	}
	return m.users[i], nil
}

func (m *MemoryStore) List(_ context.Context) ([]User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]User, len(m.users))
	copy(out, m.users)
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, update Update) (User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	i := m.indexByID(id)
	if i < 0 {
		return User{}, ErrNotFound
	}

	if update.Email != nil {
		if j := m.indexByEmail(*update.Email); j >= 0 && j != i {
			return User{}, ErrConflict
		}
	}

	user := m.users[i]
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	m.users[i] = user

	return user, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	i := m.indexByID(id)
	if i < 0 {
		return ErrNotFound
	}

	m.users = append(m.users[:i], m.users[i+1:]...)
	return nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mutex.Lock()
	m.users = nil
	m.mutex.Unlock()
	return nil
}

func (m *MemoryStore) indexByID(id string) int {
	for i := range m.users {
		if m.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) indexByEmail(email string) int {
	for i := range m.users {
		if m.users[i].Email == email {
			return i
		}
	}
	return -1
}
