package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks a job made of a known number of steps.
type ProgressBar struct {
	lock sync.Mutex

	id         string
	name       string
	start      time.Time
	total      uint64
	finished   uint64
	inProgress uint64
}

// Begin marks n steps as started.
func (b *ProgressBar) Begin(n uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.inProgress += n
}

// Done marks n started steps as finished.
func (b *ProgressBar) Done(n uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	n = min(n, b.inProgress)
	b.inProgress -= n
	b.finished += n
}

type progressView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (b *ProgressBar) view() progressView {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressView{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.start,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}
}
