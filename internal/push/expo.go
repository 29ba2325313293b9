package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	DefaultExpoEndpoint = "https://exp.host/--/api/v2/push/send"

	// Expo accepts at most this many messages per request.
	expoBatchSize = 100

	expoErrDeviceNotRegistered = "DeviceNotRegistered"
)

// ExpoClient talks to the Expo push API used by the iOS and Android apps.
type ExpoClient struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

type ExpoOption func(*ExpoClient)

func WithHTTPClient(c *http.Client) ExpoOption {
	return func(cl *ExpoClient) {
		cl.httpClient = c
	}
}

func WithEndpoint(url string) ExpoOption {
	return func(cl *ExpoClient) {
		if url != "" {
			cl.endpoint = url
		}
	}
}

// WithAccessToken enables Expo's enhanced push security.
func WithAccessToken(token string) ExpoOption {
	return func(cl *ExpoClient) {
		cl.accessToken = token
	}
}

func NewExpoClient(opts ...ExpoOption) *ExpoClient {
	c := &ExpoClient{
		endpoint:   DefaultExpoEndpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type expoMessage struct {
	To    string         `json:"to"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// ExpoTicket is Expo's per-message receipt, in request order.
type ExpoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

// DeviceNotRegistered reports whether Expo says the token is dead.
func (t ExpoTicket) DeviceNotRegistered() bool {
	return t.Status == "error" && t.Details.Error == expoErrDeviceNotRegistered
}

type expoResponse struct {
	Data []ExpoTicket `json:"data"`
}

// Send posts msg to every token and returns one ticket per token.
func (c *ExpoClient) Send(ctx context.Context, tokens []string, msg Message) ([]ExpoTicket, error) {
	tickets := make([]ExpoTicket, 0, len(tokens))
	for start := 0; start < len(tokens); start += expoBatchSize {
		end := min(start+expoBatchSize, len(tokens))
		batch, err := c.send(ctx, tokens[start:end], msg)
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, batch...)
	}
	return tickets, nil
}

func (c *ExpoClient) send(ctx context.Context, tokens []string, msg Message) ([]ExpoTicket, error) {
	messages := make([]expoMessage, len(tokens))
	for i, to := range tokens {
		messages[i] = expoMessage{To: to, Title: msg.Title, Body: msg.Body, Data: msg.Data}
	}

	body, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal expo messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send expo push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("expo API error: status %d", resp.StatusCode)
	}

	var out expoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode expo response: %w", err)
	}
	if len(out.Data) != len(tokens) {
		return nil, fmt.Errorf("expo returned %d tickets for %d messages", len(out.Data), len(tokens))
	}
	return out.Data, nil
}
