package queue

import (
	"sync"
	"testing"
)

func TestOrderPreserved(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d rejected", i)
		}
	}
	q.Close()
	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d = (%d, %v)", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop after drain should report closed")
	}
}

func TestCloseRejectsPush(t *testing.T) {
	q := New[string]()
	q.Close()
	if q.Push("late") {
		t.Fatalf("push after close accepted")
	}
}

func TestFailDropsBacklogAndRejects(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Fail()
	if q.Push(3) {
		t.Fatalf("push after fail accepted")
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop after fail should report dead")
	}
	if q.Len() != 0 {
		t.Fatalf("backlog not dropped: %d", q.Len())
	}
}

func TestBlockingPop(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	got := make([]int, 0, 10)
	go func() {
		defer wg.Done()
		for {
			v, ok := q.Pop()
			if !ok {
				return
			}
			got = append(got, v)
		}
	}()
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	q.Close()
	wg.Wait()
	if len(got) != 10 {
		t.Fatalf("consumed %d of 10", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d", i, v)
		}
	}
}
