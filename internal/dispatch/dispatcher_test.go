package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/burjnawas/sitecoord/internal/models"
)

type fakeSender struct {
	mu        sync.Mutex
	messages  []sentMessage
	documents []sentDocument
	failures  int // fail this many sends before succeeding
}

type sentMessage struct {
	chatID string
	text   string
}

type sentDocument struct {
	chatID   string
	filePath string
	caption  string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("network error")
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) SendDocument(ctx context.Context, chatID, filePath, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("network error")
	}
	f.documents = append(f.documents, sentDocument{chatID: chatID, filePath: filePath, caption: caption})
	return nil
}

func (f *fakeSender) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeSender) sentDocuments() []sentDocument {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentDocument, len(f.documents))
	copy(out, f.documents)
	return out
}

func runDispatcher(t *testing.T, d *Dispatcher) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-d.Done()
	})
	return cancel
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDispatcher_DeliversText(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, DefaultOptions())
	runDispatcher(t, d)

	d.Dispatch("-100500", Message{Text: "hello"}, models.SeverityInfo)

	waitFor(t, func() bool { return len(sender.sentMessages()) == 1 }, "message was not delivered")
	got := sender.sentMessages()[0]
	if got.chatID != "-100500" || got.text != "hello" {
		t.Errorf("unexpected delivery: %+v", got)
	}
}

func TestDispatcher_DeliversDocumentWithCaption(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, DefaultOptions())
	runDispatcher(t, d)

	d.Dispatch("-100500", Message{FilePath: "/tmp/report.md", Text: "daily report"}, models.SeverityInfo)

	waitFor(t, func() bool { return len(sender.sentDocuments()) == 1 }, "document was not delivered")
	got := sender.sentDocuments()[0]
	if got.filePath != "/tmp/report.md" || got.caption != "daily report" {
		t.Errorf("unexpected delivery: %+v", got)
	}
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	sender := &fakeSender{failures: 2}
	d := NewDispatcher(sender, Options{
		MaxAttempts:  3,
		RetryInitial: time.Millisecond,
		RetryMax:     5 * time.Millisecond,
	})
	runDispatcher(t, d)

	d.Dispatch("-100500", Message{Text: "retry me"}, models.SeverityWarning)

	waitFor(t, func() bool { return len(sender.sentMessages()) == 1 }, "message was not delivered after retries")
}

func TestDispatcher_DropsAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{failures: 3}
	d := NewDispatcher(sender, Options{
		MaxAttempts:  3,
		RetryInitial: time.Millisecond,
		RetryMax:     5 * time.Millisecond,
	})
	runDispatcher(t, d)

	d.Dispatch("-100500", Message{Text: "doomed"}, models.SeverityWarning)
	d.Dispatch("-100500", Message{Text: "survivor"}, models.SeverityInfo)

	// 3 attempts burn the first message's budget, then the second lands.
	waitFor(t, func() bool { return len(sender.sentMessages()) == 1 }, "queue did not make progress past a failed message")
	if got := sender.sentMessages()[0].text; got != "survivor" {
		t.Errorf("expected the second message to be delivered, got %q", got)
	}
}

func TestDispatcher_BackoffFollowsRetryOptions(t *testing.T) {
	d := NewDispatcher(&fakeSender{}, Options{
		RetryInitial: 2 * time.Millisecond,
		RetryMax:     8 * time.Millisecond,
	})
	if d.backoff.Initial != 2*time.Millisecond || d.backoff.Max != 8*time.Millisecond {
		t.Errorf("backoff not configured from options: %+v", d.backoff)
	}
}

func TestDispatcher_DispatchNeverBlocks(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, Options{QueueSize: 1})
	// No Run: the queue fills up and further dispatches must drop.

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Dispatch("-100500", Message{Text: "flood"}, models.SeverityInfo)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}
