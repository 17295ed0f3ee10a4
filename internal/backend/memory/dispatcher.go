package memory

import "sync"

// dispatcher 串行执行投递函数的队列
//
// post 不阻塞；close 之后的投递被丢弃，已在执行的函数不等待。
type dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	signal chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{signal: make(chan struct{}, 1)}
	go d.run()
	return d
}

func (d *dispatcher) post(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	select {
	case d.signal <- struct{}{}:
	default:
	}
	d.mu.Unlock()
	return true
}

func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.queue = nil
	close(d.signal)
	d.mu.Unlock()
}

func (d *dispatcher) run() {
	for range d.signal {
		for {
			d.mu.Lock()
			if d.closed || len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			fn := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()
			fn()
		}
	}
}
