package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/entity"
)

func newJob(key string) entity.Job {
	return entity.Job{
		ID:     uuid.New(),
		Source: entity.Location{Bucket: "bucket", Key: key},
	}
}

func TestSubmitReturnsSnapshotPosition(t *testing.T) {
	q := NewJobQueue(nil)

	for i := 1; i <= 5; i++ {
		pos, err := q.Submit(newJob("doc.pdf"))
		require.NoError(t, err)
		require.Equal(t, i, pos)
	}
	require.Equal(t, 5, q.Size())
}

func TestPositionAfterPartialDrain(t *testing.T) {
	q := NewJobQueue(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Submit(newJob("a.pdf"))
		require.NoError(t, err)
	}
	_, ok := q.TakeNext(ctx)
	require.True(t, ok)

	// Two pending, so the next submit reports position 3.
	pos, err := q.Submit(newJob("b.pdf"))
	require.NoError(t, err)
	require.Equal(t, 3, pos)
}

func TestFIFOOrder(t *testing.T) {
	q := NewJobQueue(nil)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		job := newJob("doc.pdf")
		ids = append(ids, job.ID)
		_, err := q.Submit(job)
		require.NoError(t, err)
	}

	for i := 0; i < 10; i++ {
		job, ok := q.TakeNext(ctx)
		require.True(t, ok)
		require.Equal(t, ids[i], job.ID)
	}
	require.Equal(t, 0, q.Size())
}

func TestConcurrentSubmitsDeliverEveryJobOnce(t *testing.T) {
	q := NewJobQueue(nil)
	ctx := context.Background()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				pos, err := q.Submit(newJob("doc.pdf"))
				require.NoError(t, err)
				require.Greater(t, pos, 0)
			}
		}()
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < producers*perProducer; i++ {
		job, ok := q.TakeNext(ctx)
		require.True(t, ok)
		require.False(t, seen[job.ID], "job delivered twice")
		seen[job.ID] = true
	}
	require.Equal(t, 0, q.Size())
	require.Equal(t, uint64(producers*perProducer), q.TotalSubmitted())
}

func TestTakeNextBlocksUntilSubmit(t *testing.T) {
	q := NewJobQueue(nil)
	ctx := context.Background()

	got := make(chan entity.Job, 1)
	go func() {
		job, ok := q.TakeNext(ctx)
		if ok {
			got <- job
		}
	}()

	select {
	case <-got:
		t.Fatal("TakeNext returned before any submit")
	case <-time.After(50 * time.Millisecond):
	}

	want := newJob("doc.pdf")
	_, err := q.Submit(want)
	require.NoError(t, err)

	select {
	case job := <-got:
		require.Equal(t, want.ID, job.ID)
	case <-time.After(time.Second):
		t.Fatal("TakeNext did not wake after submit")
	}
}

func TestShutdownReleasesWaiterAndRejectsSubmits(t *testing.T) {
	q := NewJobQueue(nil)
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.TakeNext(ctx)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Shutdown()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("TakeNext did not observe shutdown")
	}

	_, err := q.Submit(newJob("doc.pdf"))
	require.ErrorIs(t, err, common.ErrQueueClosed)
}

func TestContextCancelReleasesWaiter(t *testing.T) {
	q := NewJobQueue(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.TakeNext(ctx)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("TakeNext did not observe cancellation")
	}
}
