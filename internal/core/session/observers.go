package session

import "sync"

// observerRegistry 有序的具名取消函数表
type observerRegistry struct {
	mu      sync.Mutex
	names   []string
	cancels map[string]func()
}

func (r *observerRegistry) put(name string, cancel func()) (old func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancels == nil {
		r.cancels = make(map[string]func())
	}
	old, exists := r.cancels[name]
	if !exists {
		r.names = append(r.names, name)
	}
	r.cancels[name] = cancel
	return old
}

func (r *observerRegistry) take(name string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.cancels[name]
	if !ok {
		return nil
	}
	delete(r.cancels, name)
	for i, n := range r.names {
		if n == name {
			r.names = append(r.names[:i], r.names[i+1:]...)
			break
		}
	}
	return cancel
}

// takeAll 按登记的逆序返回
func (r *observerRegistry) takeAll() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]func(), 0, len(r.names))
	for i := len(r.names) - 1; i >= 0; i-- {
		out = append(out, r.cancels[r.names[i]])
	}
	r.names = nil
	r.cancels = nil
	return out
}

func (r *observerRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}
