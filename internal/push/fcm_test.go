package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFCMGateway_Send(t *testing.T) {
	var got fcmRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/med-advisor/messages:send", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"projects/med-advisor/messages/0:123"}`))
	}))
	defer server.Close()

	gateway := NewFCMGateway(server.URL+"/", "med-advisor", "access-token", server.Client())
	id, err := gateway.Send(context.Background(), Message{
		Token: "device-token",
		Title: "تذكير بالمهام",
		Body:  "عندك اليوم مهمة: زيارة",
		Data:  map[string]string{"date": "2025-12-30"},
	})

	require.NoError(t, err)
	assert.Equal(t, "projects/med-advisor/messages/0:123", id)
	assert.Equal(t, "device-token", got.Message.Token)
	assert.Equal(t, "تذكير بالمهام", got.Message.Notification.Title)
	assert.Equal(t, "2025-12-30", got.Message.Data["date"])
}

func TestFCMGateway_MapsProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
		code   string
	}{
		{
			name:   "unregistered detail",
			status: http.StatusNotFound,
			body:   `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND","details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`,
			target: ErrUnregistered,
			code:   "UNREGISTERED",
		},
		{
			name:   "invalid argument",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"The registration token is not a valid FCM registration token","status":"INVALID_ARGUMENT"}}`,
			target: ErrInvalidToken,
			code:   "INVALID_ARGUMENT",
		},
		{
			name:   "bare 404",
			status: http.StatusNotFound,
			body:   `not json`,
			target: ErrUnregistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewFCMGateway(server.URL, "p", "t", server.Client()).Send(context.Background(), Message{Token: "tok"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			var deliveryErr *DeliveryError
			require.True(t, errors.As(err, &deliveryErr))
			assert.Equal(t, tt.status, deliveryErr.Status)
			assert.Equal(t, tt.code, deliveryErr.Code)
			assert.Equal(t, "tok", deliveryErr.Token)
		})
	}
}

func TestFCMGateway_ServerErrorIsNotATokenProblem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFCMGateway(server.URL, "p", "t", server.Client()).Send(context.Background(), Message{Token: "tok"})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnregistered))
	assert.False(t, errors.Is(err, ErrInvalidToken))
	assert.Contains(t, err.Error(), "Service Unavailable")
}

func TestFCMGateway_RespectsContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFCMGateway(server.URL, "p", "t", server.Client()).Send(ctx, Message{Token: "tok"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogGateway(t *testing.T) {
	id, err := LogGateway{}.Send(context.Background(), Message{Token: "abcdefghijkl", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "log-only", id)
	assert.Equal(t, "abcd...ijkl", maskToken("abcdefghijkl"))
	assert.Equal(t, "****", maskToken("short"))
}
