package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PayPalClient talks to the PayPal Orders v2 REST API.
type PayPalClient struct {
	baseURL    string
	clientID   string
	secret     string
	returnURL  string
	cancelURL  string
	httpClient *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewPayPalClient(baseURL, clientID, secret, returnURL, cancelURL string) *PayPalClient {
	return &PayPalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		secret:     secret,
		returnURL:  returnURL,
		cancelURL:  cancelURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Processor = (*PayPalClient)(nil)

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	c.token = body.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return c.token, nil
}

func (c *PayPalClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("paypal request %s failed with status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// minorToDecimal formats minor currency units as PayPal's decimal string.
func minorToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func (c *PayPalClient) CreateOrder(ctx context.Context, amount int64, currency string) (*PayableOrder, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"application_context": map[string]string{
			"return_url": c.returnURL,
			"cancel_url": c.cancelURL,
		},
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         minorToDecimal(amount),
				},
			},
		},
	}

	var result struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := c.postJSON(ctx, "/v2/checkout/orders", payload, &result); err != nil {
		return nil, err
	}

	order := &PayableOrder{ID: result.ID}
	for _, link := range result.Links {
		if link.Rel == "approve" {
			order.ApprovalURL = link.Href
		}
	}
	if order.ID == "" || order.ApprovalURL == "" {
		return nil, fmt.Errorf("paypal order response missing id or approval link")
	}
	return order, nil
}

func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var result struct {
		Status string `json:"status"`
		Payer  struct {
			PayerID string `json:"payer_id"`
		} `json:"payer"`
	}
	if err := c.postJSON(ctx, "/v2/checkout/orders/"+orderID+"/capture", nil, &result); err != nil {
		return nil, err
	}
	return &Capture{PayerID: result.Payer.PayerID, Status: result.Status}, nil
}
