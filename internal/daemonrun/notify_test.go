package daemonrun_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"recitation/internal/config"
	"recitation/internal/daemonrun"
	"recitation/internal/logging"
	"recitation/internal/notifications"
	"recitation/internal/workflow"
)

type capturedAlert struct {
	title string
	body  string
}

func newAlertServer(t *testing.T) (notifications.Service, func() []capturedAlert) {
	t.Helper()
	var (
		mu     sync.Mutex
		alerts []capturedAlert
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		alerts = append(alerts, capturedAlert{title: r.Header.Get("Title"), body: string(body)})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	return notifications.NewService(&cfg), func() []capturedAlert {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedAlert(nil), alerts...)
	}
}

func TestPublishedNotifierSendsTitleAndDOI(t *testing.T) {
	svc, alerts := newAlertServer(t)
	notify := daemonrun.PublishedNotifier(svc, logging.NewNop())

	notify(workflow.Outcome{Identifier: "10.1371/journal.pbio.0000001", Title: "Import/Yeast"})
	notify(workflow.Outcome{Identifier: "10.1/skipped", Skipped: true})
	notify(workflow.Outcome{Identifier: "10.1/halted", Halted: true, Title: "Import/Halted"})
	notify(workflow.Outcome{Identifier: "10.1/untitled"})

	got := alerts()
	if len(got) != 1 {
		t.Fatalf("expected exactly one alert, got %+v", got)
	}
	if got[0].title != "Recitation - Published" {
		t.Fatalf("unexpected title %q", got[0].title)
	}
	if !strings.Contains(got[0].body, "Import/Yeast") || !strings.Contains(got[0].body, "https://doi.org/10.1371/journal.pbio.0000001") {
		t.Fatalf("expected page title and doi link, got %q", got[0].body)
	}
}

func TestFailureNotifierSendsError(t *testing.T) {
	svc, alerts := newAlertServer(t)
	notify := daemonrun.FailureNotifier(svc, logging.NewNop())

	notify(workflow.Outcome{Identifier: "10.1/broken", Err: errors.New("no open-access archive")})

	got := alerts()
	if len(got) != 1 {
		t.Fatalf("expected one alert, got %+v", got)
	}
	if got[0].title != "Recitation - Error" || got[0].body != "❌ Error with 10.1/broken: no open-access archive" {
		t.Fatalf("unexpected alert %+v", got[0])
	}
}

func TestNotifierDeliveryFailureDoesNotPanic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "http://127.0.0.1:1/unreachable"
	cfg.Notifications.RequestTimeout = 1
	notify := daemonrun.FailureNotifier(notifications.NewService(&cfg), logging.NewNop())

	notify(workflow.Outcome{Identifier: "10.1/x", Err: errors.New("boom")})
}
