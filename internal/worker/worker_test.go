package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparse/constants"
	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/entity"
	"github.com/joseph-ayodele/docparse/internal/queue"
)

// memGateway is an in-memory object store.
type memGateway struct {
	mu       sync.Mutex
	objects  map[string][]byte
	readErr  error
	writeErr error
}

func newMemGateway() *memGateway {
	return &memGateway{objects: make(map[string][]byte)}
}

func (g *memGateway) Read(_ context.Context, loc entity.Location) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.readErr != nil {
		return nil, g.readErr
	}
	content, ok := g.objects[loc.String()]
	if !ok {
		return nil, fmt.Errorf("%w: object %s not found", common.ErrStorage, loc.String())
	}
	return content, nil
}

func (g *memGateway) Write(_ context.Context, loc entity.Location, content []byte, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.writeErr != nil {
		return "", g.writeErr
	}
	g.objects[loc.String()] = content
	return "https://s3.amazonaws.com/" + loc.Bucket + "/" + loc.Key, nil
}

// stubConverter scripts the conversion service.
type stubConverter struct {
	externalID string
	payload    []byte
	submitErr  error
	awaitErr   error
	panics     bool
}

func (s *stubConverter) SubmitDocument(context.Context, []byte, string, constants.Variant) (string, error) {
	if s.panics {
		panic("converter exploded")
	}
	if s.submitErr != nil {
		return "", s.submitErr
	}
	return s.externalID, nil
}

func (s *stubConverter) AwaitCompletion(context.Context, string) ([]byte, error) {
	if s.awaitErr != nil {
		return nil, s.awaitErr
	}
	return s.payload, nil
}

// recordingNotifier captures every delivery.
type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []entity.Notification
	ch         chan entity.Notification
	err        error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan entity.Notification, 16)}
}

func (n *recordingNotifier) Deliver(_ context.Context, _ string, payload entity.Notification) error {
	n.mu.Lock()
	n.deliveries = append(n.deliveries, payload)
	n.mu.Unlock()
	n.ch <- payload
	return n.err
}

func (n *recordingNotifier) wait(t *testing.T) entity.Notification {
	t.Helper()
	select {
	case p := <-n.ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no notification delivered")
		return entity.Notification{}
	}
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.deliveries)
}

func tableJob(bucket, key string) entity.Job {
	return entity.Job{
		ID:          uuid.New(),
		Source:      entity.Location{Bucket: bucket, Key: key},
		CallbackURL: "http://x/hook",
		Variant:     constants.VariantTable,
		Status:      constants.JobStatusQueued,
		SubmittedAt: time.Now().UTC(),
	}
}

func startWorker(t *testing.T, store *memGateway, conv ConversionClient, notifier *recordingNotifier) *queue.JobQueue {
	t.Helper()
	q := queue.NewJobQueue(nil)
	w := New(q, store, conv, notifier, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	t.Cleanup(func() {
		cancel()
		q.Shutdown()
		w.Wait()
	})
	return q
}

func TestSuccessPathWritesOutputAndNotifiesOnce(t *testing.T) {
	store := newMemGateway()
	store.objects["s3://bucket/doc.pdf"] = []byte("%PDF")
	conv := &stubConverter{
		externalID: "ext-1",
		payload:    []byte("| Name | Age |\n| --- | --- |\n| Ada | 36 |\n"),
	}
	notifier := newRecordingNotifier()
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)

	got := notifier.wait(t)
	require.Equal(t, "success", got.Status)
	require.Equal(t, "https://s3.amazonaws.com/bucket/processed/doc.csv", got.OutputLocation)
	require.Equal(t, "doc.pdf", got.OriginalName)
	require.Equal(t, "ext-1", got.ExternalJobID)

	require.Equal(t, "Name,Age\nAda,36\n", string(store.objects["s3://bucket/processed/doc.csv"]))
	require.Equal(t, 1, notifier.count())
}

func TestInputFetchFailureNotifiesErrorWithoutExternalID(t *testing.T) {
	store := newMemGateway() // no objects: read fails
	conv := &stubConverter{externalID: "never-used"}
	notifier := newRecordingNotifier()
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "missing.pdf"))
	require.NoError(t, err)

	got := notifier.wait(t)
	require.Equal(t, "error", got.Status)
	require.Equal(t, "missing.pdf", got.OriginalName)
	require.Empty(t, got.ExternalJobID)
	require.Contains(t, got.Message, "not found")
}

func TestPollingTimeoutNotifiesErrorWithExternalID(t *testing.T) {
	store := newMemGateway()
	store.objects["s3://bucket/doc.pdf"] = []byte("%PDF")
	conv := &stubConverter{
		externalID: "ext-42",
		awaitErr:   fmt.Errorf("%w: job ext-42 did not finish within 30m0s", common.ErrPollingTimeout),
	}
	notifier := newRecordingNotifier()
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)

	got := notifier.wait(t)
	require.Equal(t, "error", got.Status)
	require.Equal(t, "ext-42", got.ExternalJobID)
	require.Contains(t, got.Message, "polling timeout")
	require.Equal(t, 1, notifier.count())
}

func TestMalformedPayloadDegradesToSuccess(t *testing.T) {
	store := newMemGateway()
	store.objects["s3://bucket/doc.pdf"] = []byte("%PDF")
	conv := &stubConverter{
		externalID: "ext-7",
		payload:    []byte("no tables in here at all"),
	}
	notifier := newRecordingNotifier()
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)

	got := notifier.wait(t)
	require.Equal(t, "success", got.Status)
	require.Equal(t, "Content\nno tables in here at all\n",
		string(store.objects["s3://bucket/processed/doc.csv"]))
}

func TestOutputWriteFailureNotifiesError(t *testing.T) {
	store := newMemGateway()
	store.objects["s3://bucket/doc.pdf"] = []byte("%PDF")
	store.writeErr = fmt.Errorf("%w: write denied", common.ErrStorage)
	conv := &stubConverter{externalID: "ext-1", payload: []byte("| A | B |\n| 1 | 2 |\n")}
	notifier := newRecordingNotifier()
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)

	got := notifier.wait(t)
	require.Equal(t, "error", got.Status)
	require.Contains(t, got.Message, "write denied")
}

func TestPanicInStageFailsJobButNotLoop(t *testing.T) {
	store := newMemGateway()
	store.objects["s3://bucket/doc.pdf"] = []byte("%PDF")
	notifier := newRecordingNotifier()

	conv := &stubConverter{panics: true, externalID: "ext-1", payload: []byte("| A | B |\n| 1 | 2 |\n")}
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)

	got := notifier.wait(t)
	require.Equal(t, "error", got.Status)
	require.Contains(t, got.Message, "unexpected fault")

	// The loop is still alive: a healthy job after the panic completes.
	conv.panics = false
	_, err = q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)
	got = notifier.wait(t)
	require.Equal(t, "success", got.Status)
}

func TestNotificationFailureDoesNotRequeue(t *testing.T) {
	store := newMemGateway()
	store.objects["s3://bucket/doc.pdf"] = []byte("%PDF")
	conv := &stubConverter{externalID: "ext-1", payload: []byte("| A | B |\n| 1 | 2 |\n")}
	notifier := newRecordingNotifier()
	notifier.err = fmt.Errorf("%w: hook gone", common.ErrNotification)
	q := startWorker(t, store, conv, notifier)

	_, err := q.Submit(tableJob("bucket", "doc.pdf"))
	require.NoError(t, err)

	notifier.wait(t)
	// Give the loop a beat to (wrongly) retry; the count must stay at one.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, notifier.count())
	require.Equal(t, 0, q.Size())
}

func TestJobsProcessedInSubmissionOrder(t *testing.T) {
	store := newMemGateway()
	conv := &stubConverter{externalID: "ext-1", payload: []byte("| A | B |\n| 1 | 2 |\n")}
	notifier := newRecordingNotifier()
	q := startWorker(t, store, conv, notifier)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("doc-%d.pdf", i)
		store.mu.Lock()
		store.objects["s3://bucket/"+key] = []byte("%PDF")
		store.mu.Unlock()
		_, err := q.Submit(tableJob("bucket", key))
		require.NoError(t, err)
	}

	for i := 0; i < 5; i++ {
		got := notifier.wait(t)
		require.Equal(t, fmt.Sprintf("doc-%d.pdf", i), got.OriginalName)
	}
}

func TestIsTerminalFailure(t *testing.T) {
	require.True(t, IsTerminalFailure(fmt.Errorf("%w: x", common.ErrStorage)))
	require.True(t, IsTerminalFailure(fmt.Errorf("%w: x", common.ErrPollingTimeout)))
	require.False(t, IsTerminalFailure(fmt.Errorf("%w: x", common.ErrMalformedPayload)))
	require.False(t, IsTerminalFailure(fmt.Errorf("%w: x", common.ErrNotification)))
}
