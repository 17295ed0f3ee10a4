package memory

import "sync"

// faults 一次性故障注入表
type faults struct {
	mu  sync.Mutex
	ops map[string][]error
}

func (f *faults) add(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ops == nil {
		f.ops = make(map[string][]error)
	}
	f.ops[op] = append(f.ops[op], err)
}

// take 取出指定操作的下一个故障，没有时返回 nil
func (f *faults) take(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.ops[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	f.ops[op] = queue[1:]
	return err
}
