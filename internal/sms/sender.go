package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender dispatches a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// GatewayClient talks to the bulk-SMS HTTP gateway.
type GatewayClient struct {
	BaseURL  string
	SenderID string
	APIKey   string
	HTTP     *http.Client
}

// NewGateway creates a gateway client with a request timeout.
func NewGateway(baseURL, senderID, apiKey string) *GatewayClient {
	return &GatewayClient{
		BaseURL:  baseURL,
		SenderID: senderID,
		APIKey:   apiKey,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// gatewayResponse is the JSON body the gateway returns on most requests.
type gatewayResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Send delivers message to phone through the gateway. Some gateway
// deployments answer plain text instead of JSON, so a 200 with a body
// mentioning success is also accepted.
func (c *GatewayClient) Send(ctx context.Context, phone, message string) error {
	if c.BaseURL == "" {
		return errors.New("sms gateway not configured")
	}

	params := url.Values{}
	params.Set("apikey", c.APIKey)
	params.Set("senderid", c.SenderID)
	params.Set("destination", phone)
	params.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway status %d: %s", resp.StatusCode, body)
	}

	var gw gatewayResponse
	if err := json.Unmarshal(body, &gw); err != nil {
		if strings.Contains(strings.ToLower(string(body)), "success") {
			return nil
		}
		return fmt.Errorf("parse sms response: %w", err)
	}
	if gw.Status == "success" || gw.Status == "sent" {
		return nil
	}
	return fmt.Errorf("sms gateway rejected message: %s", gw.Message)
}

// MockSender logs instead of dispatching. It is selected explicitly by
// configuration for dev and test deployments, never as a fallback for
// missing gateway credentials.
type MockSender struct{}

// Send logs the message and reports success.
func (MockSender) Send(_ context.Context, phone, message string) error {
	log.Printf("sms mock: to=%s message=%q", phone, message)
	return nil
}
