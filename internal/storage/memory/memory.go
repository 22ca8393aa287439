// Package memory is an in-process implementation of storage.Store, used by
// tests and by DATA_BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tagihan/internal/core"
	"tagihan/internal/storage"
)

type reminderKey struct {
	cardID, dueDate, kind string
}

type Store struct {
	mu        sync.Mutex
	cards     map[string]core.Card
	txs       map[string]core.Transaction
	reminders map[reminderKey]storage.Reminder
	seq       int
	order     map[string]int // insertion order for stable listing
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cards:     map[string]core.Card{},
		txs:       map[string]core.Transaction{},
		reminders: map[reminderKey]storage.Reminder{},
		order:     map[string]int{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateCard(_ context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.ID]; ok {
		return fmt.Errorf("card %s already exists", c.ID)
	}
	if c.LimitIncreaseReminder == "" {
		c.LimitIncreaseReminder = core.NoLimitReminder
	}
	s.cards[c.ID] = c
	s.seq++
	s.order[c.ID] = s.seq
	return nil
}

func (s *Store) UpdateCard(_ context.Context, c core.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.cards[c.ID]
	if !ok {
		return fmt.Errorf("card %s: %w", c.ID, storage.ErrNotFound)
	}
	if c.LimitIncreaseReminder == "" {
		c.LimitIncreaseReminder = core.NoLimitReminder
	}
	c.CreatedAt = prev.CreatedAt
	s.cards[c.ID] = c
	return nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return fmt.Errorf("card %s: %w", id, storage.ErrNotFound)
	}
	delete(s.cards, id)
	return nil
}

func (s *Store) GetCard(_ context.Context, id string) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return core.Card{}, fmt.Errorf("card %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCards(context.Context) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[t.ID]; ok {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	s.txs[t.ID] = cloneTx(t)
	s.seq++
	s.order[t.ID] = s.seq
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return cloneTx(t), nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id string, status core.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	t.Status = status
	s.txs[id] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, cardID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txs {
		if cardID == "" || t.CardID == cardID {
			out = append(out, cloneTx(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return s.order[out[i].ID] < s.order[out[j].ID]
	})
	return out, nil
}

func keyOf(r storage.Reminder) reminderKey {
	return reminderKey{cardID: r.CardID, dueDate: r.DueDate.Format("2006-01-02"), kind: r.Kind}
}

func (s *Store) MarkReminded(_ context.Context, r storage.Reminder) (bool, error) {
	key := keyOf(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[key]; ok {
		return false, nil
	}
	s.reminders[key] = r
	return true, nil
}

func (s *Store) ForgetReminder(_ context.Context, r storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, keyOf(r))
	return nil
}

// cloneTx copies the installment details so callers cannot mutate stored state.
func cloneTx(t core.Transaction) core.Transaction {
	if t.Installment != nil {
		d := *t.Installment
		t.Installment = &d
	}
	return t
}
