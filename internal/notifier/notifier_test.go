package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/linkedin-ingestor/internal/config"
	"github.com/sells-group/linkedin-ingestor/internal/model"
)

func testEvent() Event {
	return Event{
		Kind:       KindSuccess,
		RunID:      "run-1",
		SourcePath: "/data/incoming/export.zip",
		Status:     model.RunStatusSuccess,
		Counters:   model.RunCounters{MessagesFound: 3, MessagesInserted: 3},
	}
}

func TestWebhookDeliversEvent(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 60).Notify(context.Background(), testEvent())
	require.NoError(t, err)
	assert.Equal(t, "run-1", received.RunID)
	assert.Equal(t, KindSuccess, received.Kind)
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL, 60).Notify(context.Background(), testEvent())
	assert.Error(t, err)
}

func TestWebhookUnconfiguredIsNoop(t *testing.T) {
	assert.NoError(t, NewWebhook("", 60).Notify(context.Background(), testEvent()))
}

func TestEmailMessageBody(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewEmail(config.SMTPConfig{
		Host: "smtp.example.com", Port: 587, From: "noreply@example.com",
		Recipients: []string{"ops@example.com"},
	})
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	event := testEvent()
	event.ReportText = "Reconciliation: SUCCESS"
	require.NoError(t, n.Notify(context.Background(), event))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	body := string(gotMsg)
	assert.Contains(t, body, "Subject: LinkedIn ingestion success: run run-1")
	assert.Contains(t, body, "Messages: 3 found, 3 inserted")
	assert.Contains(t, body, "Reconciliation: SUCCESS")
}

func TestEmailUnconfiguredIsNoop(t *testing.T) {
	n := NewEmail(config.SMTPConfig{})
	assert.NoError(t, n.Notify(context.Background(), testEvent()))
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, Event) error {
	f.calls++
	return assert.AnError
}

func TestMultiSwallowsFailures(t *testing.T) {
	a := &failingNotifier{}
	b := &failingNotifier{}

	err := NewMulti(a, b).Notify(context.Background(), testEvent())
	assert.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}
