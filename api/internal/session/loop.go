package session

import (
	"context"
	"sync"
)

// Loop — однопоточная очередь событий. Все методы контроллера вызываются
// из горутины, которая крутит Run/Step; асинхронные операции возвращают
// результат через Post.
type Loop struct {
	tasks chan func()

	closeOnce sync.Once
	done      chan struct{}
}

func NewLoop() *Loop {
	return &Loop{tasks: make(chan func(), 64), done: make(chan struct{})}
}

// Post ставит задачу в очередь; безопасно из любой горутины.
// После Close задачи молча отбрасываются.
func (l *Loop) Post(f func()) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.tasks <- f:
	case <-l.done:
	}
}

// Close останавливает приём задач: поздние загрузки и отправки
// не повиснут на очереди, которую уже никто не разбирает.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Step выполняет ровно одну задачу, дожидаясь её появления.
func (l *Loop) Step(ctx context.Context) error {
	select {
	case f := <-l.tasks:
		f()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain выполняет всё, что уже лежит в очереди, не блокируясь.
func (l *Loop) Drain() int {
	n := 0
	for {
		select {
		case f := <-l.tasks:
			f()
			n++
		default:
			return n
		}
	}
}

func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.Step(ctx); err != nil {
			return err
		}
	}
}
