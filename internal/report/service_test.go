package report

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/burjnawas/sitecoord/internal/dispatch"
	"github.com/burjnawas/sitecoord/internal/logstore"
	"github.com/burjnawas/sitecoord/internal/models"
)

type fakeRenderer struct {
	path string
	err  error
}

func (f *fakeRenderer) Render(record *models.ReportRecord) (string, error) {
	return f.path, f.err
}

type fakeSettings struct {
	safetyChannel string
}

func (f *fakeSettings) Set(ctx context.Context, key, value string) error { return nil }
func (f *fakeSettings) Get(ctx context.Context, key string) (string, error) {
	return "", logstore.ErrNotFound
}
func (f *fakeSettings) SetAlertDestination(ctx context.Context, siteID, chatID string) error {
	return nil
}
func (f *fakeSettings) AlertDestination(ctx context.Context, siteID string) (string, error) {
	return "", logstore.ErrNotFound
}
func (f *fakeSettings) SetSafetyChannel(ctx context.Context, chatID string) error { return nil }
func (f *fakeSettings) SafetyChannel(ctx context.Context) (string, error) {
	if f.safetyChannel == "" {
		return "", logstore.ErrNotFound
	}
	return f.safetyChannel, nil
}

type captureSender struct {
	mu        sync.Mutex
	documents []struct{ chatID, filePath, caption string }
}

func (c *captureSender) SendMessage(ctx context.Context, chatID, text string) error { return nil }
func (c *captureSender) SendDocument(ctx context.Context, chatID, filePath, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = append(c.documents, struct{ chatID, filePath, caption string }{chatID, filePath, caption})
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.documents)
}

func newTestService(t *testing.T, settings *fakeSettings) (*Service, *fakeReports, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	d := dispatch.NewDispatcher(sender, dispatch.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-d.Done()
	})

	reports := &fakeReports{}
	compiler := NewCompiler(
		&fakeLogs{entries: dayEntries()},
		reports,
		&fakeProjects{},
		&fakeWeather{},
		&fakeAI{summary: "summary"},
		&fakePhotos{data: map[string][]byte{"/photos/a.jpg": []byte("jpeg")}},
		Options{},
	)
	svc := NewService(compiler, &fakeRenderer{path: "/data/reports/out.md"}, reports, settings, d, dispatch.EnglishFormatter{})
	return svc, reports, sender
}

func TestService_PublishesToRequestedChat(t *testing.T) {
	svc, reports, sender := newTestService(t, &fakeSettings{safetyChannel: "-100500"})

	record, err := svc.GenerateAndPublish(context.Background(), "site-1", testPeriod(), "-200999")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sender.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if sender.count() != 1 {
		t.Fatal("report document was not delivered")
	}

	sender.mu.Lock()
	doc := sender.documents[0]
	sender.mu.Unlock()
	if doc.chatID != "-200999" {
		t.Errorf("expected requested chat, got %q", doc.chatID)
	}
	if doc.filePath != "/data/reports/out.md" {
		t.Errorf("unexpected document path %q", doc.filePath)
	}
	if !strings.Contains(doc.caption, record.ReportID) {
		t.Errorf("expected report id in caption, got %q", doc.caption)
	}

	reports.mu.Lock()
	saved := len(reports.saved)
	reports.mu.Unlock()
	if saved != 1 {
		t.Errorf("expected 1 stored report, got %d", saved)
	}
}

func TestService_FallsBackToSafetyChannel(t *testing.T) {
	svc, _, sender := newTestService(t, &fakeSettings{safetyChannel: "-100500"})

	if _, err := svc.GenerateAndPublish(context.Background(), "site-1", testPeriod(), ""); err != nil {
		t.Fatalf("generate: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sender.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.documents) != 1 || sender.documents[0].chatID != "-100500" {
		t.Fatalf("expected delivery to safety channel, got %+v", sender.documents)
	}
}

func TestService_KeepsReportWhenNoDestination(t *testing.T) {
	svc, reports, sender := newTestService(t, &fakeSettings{})

	record, err := svc.GenerateAndPublish(context.Background(), "site-1", testPeriod(), "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record even without a destination")
	}

	time.Sleep(50 * time.Millisecond)
	if sender.count() != 0 {
		t.Error("expected no delivery without a destination")
	}

	reports.mu.Lock()
	defer reports.mu.Unlock()
	if len(reports.saved) != 1 {
		t.Errorf("expected the report to still be recorded, got %d", len(reports.saved))
	}
}
