package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MpesaClient talks to the Daraja API. Access tokens are cached until just
// before their expiry; all calls share one token.
type MpesaClient struct {
	cfg  Config
	http *http.Client
	now  func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type MpesaOption func(*MpesaClient)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(c *http.Client) MpesaOption {
	return func(m *MpesaClient) {
		if c != nil {
			m.http = c
		}
	}
}

func WithClock(now func() time.Time) MpesaOption {
	return func(m *MpesaClient) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMpesaClient(cfg Config, opts ...MpesaOption) *MpesaClient {
	m := &MpesaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken returns a cached OAuth token, fetching a fresh one when the
// cache is empty or within a minute of expiring.
func (m *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Before(m.tokenExpiry.Add(-time.Minute)) {
		return m.token, nil
	}

	url := m.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build token request")
	}
	req.SetBasicAuth(m.cfg.ConsumerKey, m.cfg.ConsumerSecret)

	res, err := m.http.Do(req)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "mpesa token request failed")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return "", ErrGatewayRejected.WithMetadata(map[string]any{
			"status": res.StatusCode,
			"body":   strings.TrimSpace(string(body)),
		})
	}

	var tr tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode token response")
	}

	// expires_in comes back as a string of seconds, normally "3599"
	ttl := time.Hour
	if d, err := time.ParseDuration(tr.ExpiresIn + "s"); err == nil {
		ttl = d
	}

	m.token = tr.AccessToken
	m.tokenExpiry = m.now().Add(ttl)

	return m.token, nil
}

// stkPassword is base64(shortcode + passkey + timestamp), the Daraja scheme.
func (m *MpesaClient) stkPassword(timestamp string) string {
	raw := m.cfg.Shortcode + m.cfg.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func (m *MpesaClient) timestamp() string {
	return m.now().Format("20060102150405")
}

// STKPushResponse is the synchronous acknowledgement; the actual payment
// result arrives later on the callback URL.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKPush asks Daraja to pop the payment prompt on the customer's phone.
// Phone must be in 2547XXXXXXXX form and the amount is truncated to whole
// shillings, which is all the API accepts.
func (m *MpesaClient) STKPush(ctx context.Context, phone string, amount float64, reference, description string) (*STKPushResponse, error) {
	token, err := m.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := m.timestamp()
	payload := map[string]any{
		"BusinessShortCode": m.cfg.Shortcode,
		"Password":          m.stkPassword(ts),
		"Timestamp":         ts,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int(amount),
		"PartyA":            phone,
		"PartyB":            m.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       m.cfg.CallbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   description,
	}

	out := &STKPushResponse{}
	if err := m.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload, out); err != nil {
		return nil, err
	}

	if out.ResponseCode != "0" {
		return nil, ErrGatewayRejected.WithMetadata(map[string]any{
			"response_code": out.ResponseCode,
			"description":   out.ResponseDescription,
		})
	}

	return out, nil
}

// B2CResponse acknowledges a payout request.
type B2CResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// B2C pays out to a customer phone, used for seller withdrawals.
func (m *MpesaClient) B2C(ctx context.Context, phone string, amount float64, remarks string) (*B2CResponse, error) {
	token, err := m.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"InitiatorName":      m.cfg.InitiatorName,
		"SecurityCredential": m.cfg.SecurityCredential,
		"CommandID":          "BusinessPayment",
		"Amount":             int(amount),
		"PartyA":             m.cfg.B2CShortcode,
		"PartyB":             phone,
		"Remarks":            remarks,
		"QueueTimeOutURL":    m.cfg.TimeoutURL,
		"ResultURL":          m.cfg.ResultURL,
		"Occasion":           "withdrawal",
	}

	out := &B2CResponse{}
	if err := m.post(ctx, "/mpesa/b2c/v1/paymentrequest", token, payload, out); err != nil {
		return nil, err
	}

	if out.ResponseCode != "0" {
		return nil, ErrGatewayRejected.WithMetadata(map[string]any{
			"response_code": out.ResponseCode,
			"description":   out.ResponseDescription,
		})
	}

	return out, nil
}

func (m *MpesaClient) post(ctx context.Context, path, token string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode mpesa payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build mpesa request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, fmt.Sprintf("mpesa request to %s failed", path))
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return ErrGatewayRejected.WithMetadata(map[string]any{
			"status": res.StatusCode,
			"path":   path,
			"body":   strings.TrimSpace(string(body)),
		})
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode mpesa response")
	}

	return nil
}

// STKCallback is the asynchronous result Daraja posts to the callback URL.
type STKCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// Receipt digs the MpesaReceiptNumber out of the callback metadata.
func (cb *STKCallback) Receipt() string {
	for _, item := range cb.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}
