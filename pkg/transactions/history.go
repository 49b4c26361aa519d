package transactions

import "strings"

// DefaultHistoryCapacity is the number of transactions kept by default
const DefaultHistoryCapacity = 50

// History is a bounded, most-recent-first collection of transactions.
// It is not safe for concurrent use.
type History struct {
	capacity int
	items    []Transaction
}

// NewHistory creates a history holding at most capacity entries, pre-filled
// with seed in the given order. Seeded entries are never marked new.
func NewHistory(capacity int, seed ...Transaction) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}

	h := &History{
		capacity: capacity,
		items:    make([]Transaction, 0, capacity+1),
	}
	for _, tx := range seed {
		if len(h.items) == capacity {
			break
		}
		tx.IsNew = false
		h.items = append(h.items, tx)
	}
	return h
}

// Insert prepends txs (the first argument ends up newest) and marks exactly
// them as new. Entries beyond capacity are evicted oldest first.
func (h *History) Insert(txs ...Transaction) {
	if len(txs) == 0 {
		return
	}

	for i := range h.items {
		h.items[i].IsNew = false
	}

	fresh := make([]Transaction, 0, len(txs)+len(h.items))
	for _, tx := range txs {
		tx.IsNew = true
		fresh = append(fresh, tx)
	}
	fresh = append(fresh, h.items...)

	if len(fresh) > h.capacity {
		fresh = fresh[:h.capacity]
	}
	h.items = fresh
}

// All returns a copy of the held transactions, most recent first
func (h *History) All() []Transaction {
	out := make([]Transaction, len(h.items))
	copy(out, h.items)
	return out
}

// Filter returns the transactions whose ID or location contains term,
// ignoring case. An empty term matches everything.
func (h *History) Filter(term string) []Transaction {
	needle := strings.ToLower(term)
	out := make([]Transaction, 0, len(h.items))
	for _, tx := range h.items {
		if strings.Contains(strings.ToLower(tx.ID), needle) ||
			strings.Contains(strings.ToLower(tx.Location), needle) {
			out = append(out, tx)
		}
	}
	return out
}

// Len returns the number of held transactions
func (h *History) Len() int {
	return len(h.items)
}

// Capacity returns the maximum number of held transactions
func (h *History) Capacity() int {
	return h.capacity
}
