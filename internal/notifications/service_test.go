package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recitation/internal/config"
	"recitation/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyPublished(context.Background(), "Example", "https://doi.org/10.1/x"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "10.1/x"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "published",
			send: func(svc notifications.Service) error {
				return svc.NotifyPublished(context.Background(), "Wikisource:Import/Cell Biology of Yeast", "https://doi.org/10.1371/journal.pbio.0000001")
			},
			expectTitle:   "Recitation - Published",
			expectMessage: "📄 Published: Wikisource:Import/Cell Biology of Yeast\nSource: https://doi.org/10.1371/journal.pbio.0000001",
			expectTags:    "recitation,publish,completed",
		},
		{
			name: "published without doi",
			send: func(svc notifications.Service) error {
				return svc.NotifyPublished(context.Background(), " Bare Title ", "")
			},
			expectTitle:   "Recitation - Published",
			expectMessage: "📄 Published: Bare Title",
			expectTags:    "recitation,publish,completed",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("no open-access archive"), "10.1/missing")
			},
			expectTitle:    "Recitation - Error",
			expectMessage:  "❌ Error with 10.1/missing: no open-access archive",
			expectTags:     "recitation,error,alert",
			expectPriority: "high",
		},
		{
			name: "error without cause",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), nil, "")
			},
			expectTitle:    "Recitation - Error",
			expectMessage:  "❌ Error: unknown",
			expectTags:     "recitation,error,alert",
			expectPriority: "high",
		},
		{
			name: "test",
			send: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Recitation - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "recitation,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsRejectedPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic is reserved", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for rejected post")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic is reserved") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}
