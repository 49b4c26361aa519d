package stream

import (
	"fmt"
	"log"
	"sync"

	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// Handler receives a classified transaction. A returned error is logged and
// otherwise ignored.
type Handler func(tx transactions.Transaction) error

// Subscription is the token returned when a handler is registered
type Subscription struct {
	once   sync.Once
	remove func()
}

// Unsubscribe removes the handler. It is idempotent.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.remove)
}

// DispatchReport summarizes the delivery of one transaction
type DispatchReport struct {
	Status    transactions.Status
	Delivered int
	Failed    int
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Dispatcher routes transactions to fraud and warning handlers by status.
// Registration is safe for concurrent use; handlers are resolved when a
// transaction is dispatched.
type Dispatcher struct {
	mu      sync.RWMutex
	nextID  uint64
	fraud   []subscriber
	warning []subscriber
	logger  *log.Logger
}

// NewDispatcher creates a dispatcher logging handler failures to logger
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{logger: logger}
}

// OnFraud registers a handler for fraudulent transactions
func (d *Dispatcher) OnFraud(h Handler) *Subscription {
	return d.subscribe(&d.fraud, h)
}

// OnWarning registers a handler for pending transactions
func (d *Dispatcher) OnWarning(h Handler) *Subscription {
	return d.subscribe(&d.warning, h)
}

func (d *Dispatcher) subscribe(list *[]subscriber, h Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	*list = append(*list, subscriber{id: id, handler: h})

	return &Subscription{remove: func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		subs := *list
		for i, s := range subs {
			if s.id == id {
				*list = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}}
}

// Dispatch delivers tx to the handlers matching its status. Each handler is
// called at most once; errors and panics are isolated per handler.
func (d *Dispatcher) Dispatch(tx transactions.Transaction) DispatchReport {
	report := DispatchReport{Status: tx.Status}

	d.mu.RLock()
	var subs []subscriber
	switch tx.Status {
	case transactions.Fraudulent:
		subs = append(subs, d.fraud...)
	case transactions.Pending:
		subs = append(subs, d.warning...)
	}
	d.mu.RUnlock()

	for _, s := range subs {
		if err := d.call(s.handler, tx); err != nil {
			report.Failed++
			d.logger.Printf("Alert subscriber failed for %s (%s): %v", tx.ID, tx.Status, err)
			continue
		}
		report.Delivered++
	}

	return report
}

func (d *Dispatcher) call(h Handler, tx transactions.Transaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	if h == nil {
		return nil
	}
	return h(tx)
}
