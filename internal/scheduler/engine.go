package scheduler

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")

// IntentKind names the background action an Intent asks for. The engine only
// announces intents; the update loop performs the actual work.
type IntentKind string

const (
	KindRefresh      IntentKind = "refresh"
	KindArchiveSweep IntentKind = "archive-sweep"
)

// Intent is a scheduled request for background work. An Intent with a
// non-zero Every re-arms itself after firing.
type Intent struct {
	ID        string
	Kind      IntentKind
	TriggerAt time.Time
	Every     time.Duration
}

type queueItem struct {
	intent Intent
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].intent.TriggerAt.Before(pq[j].intent.TriggerAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

// Engine fires Intents at their trigger times over a buffered channel. Sends
// never block: if the consumer lags behind, intents are dropped and counted.
// Recurring intents survive drops because re-arming happens at pop time.
type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	out     chan Intent
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(priorityQueue, 0),
		out:    make(chan Intent, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Intent {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(in Intent) error {
	if in.TriggerAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return errors.New("scheduler: engine stopped")
	}

	heap.Push(&e.queue, queueItem{intent: in})
	e.signalWakeup()
	return nil
}

// ScheduleEvery arms a recurring intent whose first firing is one period
// from now.
func (e *Engine) ScheduleEvery(id string, kind IntentKind, every time.Duration) error {
	if every <= 0 {
		return ErrInvalidTriggerTime
	}
	return e.Schedule(Intent{
		ID:        id,
		Kind:      kind,
		TriggerAt: time.Now().UTC().Add(every),
		Every:     every,
	})
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.TriggerAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now().UTC())
			for _, in := range due {
				select {
				case e.out <- in:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Intent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Intent{}, false
	}
	return e.queue[0].intent, true
}

func (e *Engine) popDue(now time.Time) []Intent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Intent, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].intent
		if next.TriggerAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		out = append(out, item.intent)

		// Recurring intents re-arm immediately so a dropped send
		// cannot silence them forever.
		if item.intent.Every > 0 {
			rearmed := item.intent
			rearmed.TriggerAt = now.Add(rearmed.Every)
			heap.Push(&e.queue, queueItem{intent: rearmed})
		}
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
