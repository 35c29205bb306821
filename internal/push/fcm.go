package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// FCMGateway sends messages through the Firebase Cloud Messaging HTTP v1 API.
type FCMGateway struct {
	endpoint    string
	projectID   string
	accessToken string
	client      *http.Client
}

func NewFCMGateway(endpoint, projectID, accessToken string, client *http.Client) *FCMGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &FCMGateway{
		endpoint:    strings.TrimRight(endpoint, "/"),
		projectID:   projectID,
		accessToken: accessToken,
		client:      client,
	}
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Name string `json:"name"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func (g *FCMGateway) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(fcmRequest{Message: fcmMessage{
		Token:        msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}})
	if err != nil {
		return "", fmt.Errorf("failed to encode fcm message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", g.endpoint, g.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build fcm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &DeliveryError{Token: msg.Token, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &DeliveryError{Token: msg.Token, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", decodeFCMError(msg.Token, resp.StatusCode, body)
	}

	var out fcmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode fcm response: %w", err)
	}
	return out.Name, nil
}

func decodeFCMError(token string, status int, body []byte) error {
	var parsed fcmErrorResponse
	_ = json.Unmarshal(body, &parsed)

	code := parsed.Error.Status
	for _, d := range parsed.Error.Details {
		if d.ErrorCode != "" {
			code = d.ErrorCode
			break
		}
	}

	message := parsed.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}

	var cause error
	switch {
	case code == "UNREGISTERED" || status == http.StatusNotFound:
		cause = ErrUnregistered
	case code == "INVALID_ARGUMENT":
		cause = fmt.Errorf("%w: %s", ErrInvalidToken, message)
	default:
		cause = errors.New(message)
	}
	return &DeliveryError{Token: token, Status: status, Code: code, Err: cause}
}
