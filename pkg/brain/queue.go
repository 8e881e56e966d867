package brain

import (
	"container/list"
	"context"
	"sync"
)

// queueKind distinguishes the two FIFO queues the semaphore admits from.
type queueKind int

const (
	queueChat queueKind = iota
	queueDefault
)

// token is one waiter's place in line. admitted is closed exactly once, by
// the semaphore, when the waiter is allowed to proceed.
type token struct {
	kind     queueKind
	admitted chan struct{}
}

// semaphore is the two-FIFO-queue priority admission control described in
// spec.md §4.4. It has no 1:1 teacher analog; the mutex-guarded state plus
// broadcast-on-release idiom follows the shape of the teacher's
// WorkerPool/Worker start-stop bookkeeping (pkg/queue/pool.go,
// pkg/queue/worker.go) adapted from a DB-polled work queue to an in-process
// condition-variable semaphore, since the Brain Router has no persistent
// backing table to poll — admission state lives only in memory for the
// process's lifetime.
type semaphore struct {
	maxConcurrency int
	chatExtraSlots int

	mu       sync.Mutex
	inflight int
	chatQ    *list.List // of *token
	defaultQ *list.List // of *token
}

func newSemaphore(maxConcurrency, chatExtraSlots int) *semaphore {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if chatExtraSlots < 0 {
		chatExtraSlots = 0
	}
	return &semaphore{
		maxConcurrency: maxConcurrency,
		chatExtraSlots: chatExtraSlots,
		chatQ:          list.New(),
		defaultQ:       list.New(),
	}
}

// acquire blocks until admission rules permit this request to run, or ctx is
// cancelled. On success the caller must call release exactly once.
func (s *semaphore) acquire(ctx context.Context, kind queueKind) error {
	s.mu.Lock()
	t := &token{kind: kind, admitted: make(chan struct{})}
	var elem *list.Element
	if kind == queueChat {
		elem = s.chatQ.PushBack(t)
	} else {
		elem = s.defaultQ.PushBack(t)
	}
	s.tryAdmitLocked()
	s.mu.Unlock()

	select {
	case <-t.admitted:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		select {
		case <-t.admitted:
			// admitted concurrently with cancellation; honor the admission
			// and let the caller release it rather than leaking a slot.
			s.mu.Unlock()
			return nil
		default:
		}
		if kind == queueChat {
			s.chatQ.Remove(elem)
		} else {
			s.defaultQ.Remove(elem)
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// release frees one inflight slot and wakes waiters that may now qualify.
func (s *semaphore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.tryAdmitLocked()
}

// tryAdmitLocked admits as many head-of-queue tokens as current admission
// rules allow. Must be called with mu held.
//
// Rule 1: a chat token may run while inflight < max_concurrency + extra_slots.
// Rule 2: a default token may run only if chat_queue is empty AND
// inflight < max_concurrency. Applying both in a loop implements "tokens
// released wake all waiters" (broadcast) without an explicit sync.Cond,
// since admission is re-evaluated from scratch every time capacity changes.
func (s *semaphore) tryAdmitLocked() {
	for {
		if front := s.chatQ.Front(); front != nil && s.inflight < s.maxConcurrency+s.chatExtraSlots {
			s.admitFrontLocked(s.chatQ, front)
			continue
		}
		if s.chatQ.Len() == 0 {
			if front := s.defaultQ.Front(); front != nil && s.inflight < s.maxConcurrency {
				s.admitFrontLocked(s.defaultQ, front)
				continue
			}
		}
		return
	}
}

func (s *semaphore) admitFrontLocked(q *list.List, elem *list.Element) {
	t := elem.Value.(*token)
	q.Remove(elem)
	s.inflight++
	close(t.admitted)
}

// depth reports the current queue lengths and inflight count, for tests and
// observability.
func (s *semaphore) depth() (chatLen, defaultLen, inflight int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatQ.Len(), s.defaultQ.Len(), s.inflight
}
