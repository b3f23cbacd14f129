// Package keylock выдает взаимоисключающие блокировки по ключу. Блокировка под ключ создается при
// первом захвате и удаляется, когда ее больше никто не держит и не ждет.
package keylock

import (
	"context"
	"sync"
)

type lock struct {
	ch   chan struct{}
	refs int
}

// Pool набор блокировок по ключам.
type Pool[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*lock
}

func New[K comparable]() *Pool[K] {
	return &Pool[K]{locks: make(map[K]*lock)}
}

// Lock захватывает блокировку ключа key. Ожидание прерывается отменой ctx, в этом случае возвращается
// ошибка контекста. Полученную функцию unlock нужно вызвать ровно один раз.
func (p *Pool[K]) Lock(ctx context.Context, key K) (func(), error) {
	l := p.acquireRef(key)

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		p.releaseRef(key, l)
		return nil, ctx.Err() //nolint:wrapcheck
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			p.releaseRef(key, l)
		})
	}, nil
}

// Len количество ключей, под которые сейчас есть блокировки.
func (p *Pool[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

func (p *Pool[K]) acquireRef(key K) *lock {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[key]
	if !ok {
		l = &lock{ch: make(chan struct{}, 1)}
		p.locks[key] = l
	}
	l.refs++
	return l
}

func (p *Pool[K]) releaseRef(key K, l *lock) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(p.locks, key)
	}
}
