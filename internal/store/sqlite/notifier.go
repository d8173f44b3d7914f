package sqlite

import (
	"sync"

	"financas/internal/core"
	"financas/internal/store"
)

// notifier fans collection snapshots out to in-process subscribers. Each
// channel is buffered for one snapshot and a lagging consumer only ever
// sees the newest one.
type notifier struct {
	mu      sync.Mutex
	txSubs  map[core.Kind]map[int]chan []core.Transaction
	balSubs map[int]chan core.Money
	nextSub int
}

func newNotifier() *notifier {
	return &notifier{
		txSubs: map[core.Kind]map[int]chan []core.Transaction{
			core.Income:  {},
			core.Expense: {},
		},
		balSubs: map[int]chan core.Money{},
	}
}

func (n *notifier) subscribeTransactions(kind core.Kind, initial []core.Transaction) (<-chan []core.Transaction, store.CancelFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan []core.Transaction, 1)
	id := n.nextSub
	n.nextSub++
	n.txSubs[kind][id] = ch
	ch <- initial

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.txSubs[kind], id)
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

func (n *notifier) subscribeBalance(initial core.Money) (<-chan core.Money, store.CancelFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan core.Money, 1)
	id := n.nextSub
	n.nextSub++
	n.balSubs[id] = ch
	ch <- initial

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.balSubs, id)
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

func (n *notifier) publishTransactions(kind core.Kind, snap []core.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.txSubs[kind] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (n *notifier) publishBalance(m core.Money) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.balSubs {
		select {
		case ch <- m:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- m
		}
	}
}
