package scheduler

// taskHeap is a binary min-heap ordered by sortIndex, then by insertion id.
type taskHeap struct {
	tasks []*Task
}

func newTaskHeap() *taskHeap {
	return &taskHeap{
		tasks: make([]*Task, 0),
	}
}

func (h *taskHeap) Len() int {
	return len(h.tasks)
}

func (h *taskHeap) Insert(t *Task) {
	h.tasks = append(h.tasks, t)
	h.siftUp(len(h.tasks) - 1)
}

func (h *taskHeap) Peek() *Task {
	if len(h.tasks) == 0 {
		return nil
	}
	return h.tasks[0]
}

func (h *taskHeap) Pop() *Task {
	if len(h.tasks) == 0 {
		return nil
	}

	first := h.tasks[0]
	last := len(h.tasks) - 1

	h.tasks[0] = h.tasks[last]
	h.tasks[last] = nil
	h.tasks = h.tasks[:last]

	if last > 0 {
		h.siftDown(0)
	}

	return first
}

func (h *taskHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.tasks[i], h.tasks[parent]) {
			return
		}
		h.tasks[i], h.tasks[parent] = h.tasks[parent], h.tasks[i]
		i = parent
	}
}

func (h *taskHeap) siftDown(i int) {
	n := len(h.tasks)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}

		smallest := left
		if right := left + 1; right < n && less(h.tasks[right], h.tasks[left]) {
			smallest = right
		}
		if !less(h.tasks[smallest], h.tasks[i]) {
			return
		}

		h.tasks[i], h.tasks[smallest] = h.tasks[smallest], h.tasks[i]
		i = smallest
	}
}

func less(a, b *Task) bool {
	if a.sortIndex != b.sortIndex {
		return a.sortIndex < b.sortIndex
	}
	return a.id < b.id
}
