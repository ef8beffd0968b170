package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkscope/audit-cli/internal/model"
)

func testAlert(sev model.Severity) model.Alert {
	return model.Alert{
		Type:      model.AlertSuccessRateDrop,
		Severity:  sev,
		Platform:  model.PlatformInstagram,
		Message:   "success rate dropped",
		Timestamp: time.Now().UTC(),
	}
}

func TestSendAlerts_PostsJSON(t *testing.T) {
	var received []model.Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var al model.Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&al))
		received = append(received, al)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(Config{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []model.Alert{
		testAlert(model.SeverityCritical),
		testAlert(model.SeverityLow),
	})

	assert.Equal(t, 2, sent)
	require.Len(t, received, 2)
	assert.Equal(t, model.AlertSuccessRateDrop, received[0].Type)
}

func TestSendAlerts_MinSeverityFilters(t *testing.T) {
	var count int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(Config{WebhookURL: srv.URL, MinSeverity: model.SeverityHigh})
	sent := a.SendAlerts(context.Background(), []model.Alert{
		testAlert(model.SeverityCritical),
		testAlert(model.SeverityHigh),
		testAlert(model.SeverityMedium),
		testAlert(model.SeverityLow),
	})

	assert.Equal(t, 2, sent)
	assert.Equal(t, 2, count)
}

func TestSendAlerts_ServerErrorNotFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New(Config{WebhookURL: srv.URL})
	sent := a.SendAlerts(context.Background(), []model.Alert{testAlert(model.SeverityHigh)})
	assert.Equal(t, 0, sent)
}

func TestSendAlerts_NoWebhookConfigured(t *testing.T) {
	a := New(Config{})
	sent := a.SendAlerts(context.Background(), []model.Alert{testAlert(model.SeverityCritical)})
	assert.Equal(t, 0, sent)
}

func TestSendAlerts_EmptySlice(t *testing.T) {
	a := New(Config{WebhookURL: "http://localhost:1"})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}
