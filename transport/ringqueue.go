package transport

import (
	"sync"
	"time"

	"github.com/GoldenBitsSoftware/authlib-linux/metrics"
)

// againError is the type of ErrAgain, which RingQueue.Read returns
// when no byte became available within the requested timeout.
type againError struct{}

func (*againError) Error() string { return "transport: would block" }

// ErrAgain is the sentinel comparable via errors.Is.
var ErrAgain error = &againError{}

// RingQueue is a fixed-capacity byte ring buffer with a single
// producer and a single consumer, guarded by one mutex and condition
// variable. Overflow policy is drop-newest: Put accepts as many bytes
// as fit and silently discards the rest, returning the count actually
// accepted.
type RingQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  []byte
	head int
	size int

	carrierLabel string
}

// NewRingQueue allocates a queue with the given byte capacity.
func NewRingQueue(capacity int) *RingQueue {
	q := &RingQueue{buf: make([]byte, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// SetCarrierLabel attaches a carrier name used to label dropped-byte
// metrics. Queues with no label set (the default) do not report to
// metrics at all.
func (q *RingQueue) SetCarrierLabel(name string) {
	q.mu.Lock()
	q.carrierLabel = name
	q.mu.Unlock()
}

// Put enqueues as many bytes of data as fit in the remaining capacity
// and returns the count accepted. Excess bytes (the newest ones) are
// dropped.
func (q *RingQueue) Put(data []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	free := len(q.buf) - q.size
	n := len(data)
	if n > free {
		n = free
	}
	tail := (q.head + q.size) % len(q.buf)
	for i := 0; i < n; i++ {
		q.buf[(tail+i)%len(q.buf)] = data[i]
	}
	q.size += n
	if n > 0 {
		q.cond.Broadcast()
	}
	if dropped := len(data) - n; dropped > 0 && q.carrierLabel != "" {
		metrics.RecvQueueDropped.WithLabelValues(q.carrierLabel).Add(float64(dropped))
	}
	return n
}

// Read copies up to len(buf) queued bytes into buf, consuming them.
// It blocks until at least one byte is available or timeout elapses,
// in which case it returns (0, ErrAgain). A non-positive timeout
// performs a non-blocking check.
func (q *RingQueue) Read(buf []byte, timeout time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		if timeout <= 0 {
			return 0, ErrAgain
		}
		deadline := time.Now().Add(timeout)
		for q.size == 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return 0, ErrAgain
			}
			q.waitFor(remaining)
		}
	}
	return q.readLocked(buf), nil
}

// Peek copies queued bytes into buf without consuming them.
func (q *RingQueue) Peek(buf []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(buf)
	if n > q.size {
		n = q.size
	}
	for i := 0; i < n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return n, nil
}

// Len reports the number of bytes currently queued.
func (q *RingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// LenWait blocks until at least one byte is queued or timeout
// elapses, then returns the queued byte count (possibly still zero).
func (q *RingQueue) LenWait(timeout time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size > 0 || timeout <= 0 {
		return q.size
	}
	deadline := time.Now().Add(timeout)
	for q.size == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		q.waitFor(remaining)
	}
	return q.size
}

// readLocked drains up to len(buf) bytes; caller must hold q.mu and
// have already established q.size > 0.
func (q *RingQueue) readLocked(buf []byte) int {
	n := len(buf)
	if n > q.size {
		n = q.size
	}
	for i := 0; i < n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head = (q.head + n) % len(q.buf)
	q.size -= n
	return n
}

// waitFor blocks on q.cond for at most d, then returns. Caller must
// hold q.mu (sync.Cond.Wait releases it while parked and reacquires
// it before returning).
func (q *RingQueue) waitFor(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	q.cond.Wait()
	timer.Stop()
}
