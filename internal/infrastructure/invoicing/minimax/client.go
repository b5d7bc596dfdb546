// Package minimax creates draft invoices through the Minimax REST API.
package minimax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tihomirborovcak/radni-nalozi/internal/domain/invoicing"
	"github.com/tihomirborovcak/radni-nalozi/pkg/logger"
)

// Config holds API endpoint and credentials.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
}

// Client implements invoicing.Client.
type Client struct {
	cfg  Config
	http *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
	orgID   int64
}

var _ invoicing.Client = (*Client)(nil)

// New creates a client. A zero Timeout means 30s.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type issuedInvoice struct {
	Status           string       `json:"Status"`
	InvoiceType      string       `json:"InvoiceType"`
	Customer         customerRef  `json:"Customer"`
	Date             string       `json:"Date"`
	DateDue          string       `json:"DateDue"`
	DescriptionAbove string       `json:"DescriptionAbove"`
	DescriptionBelow string       `json:"DescriptionBelow"`
	Rows             []invoiceRow `json:"IssuedInvoiceRows"`
}

type customerRef struct {
	CustomerID int64 `json:"CustomerId"`
}

type invoiceRow struct {
	ItemName          string      `json:"ItemName"`
	Quantity          json.Number `json:"Quantity"`
	UnitOfMeasurement string      `json:"UnitOfMeasurement"`
	Price             json.Number `json:"Price"`
	VATPercent        json.Number `json:"VATPercent"`
}

// CreateDraft posts draft as an unissued invoice and returns the id taken
// from the Location header.
func (c *Client) CreateDraft(ctx context.Context, draft invoicing.Draft) (string, error) {
	body, err := buildInvoice(draft)
	if err != nil {
		return "", err
	}

	orgID, err := c.organisation(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orgs/%d/issuedinvoices", orgID), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("minimax: created invoice has no Location header")
	}
	ref := path.Base(strings.TrimRight(location, "/"))
	logger.Debug(ctx, "minimax draft created", "location", location)
	return ref, nil
}

// buildInvoice maps a draft to the API payload. Status O is a draft, type
// R an invoice.
func buildInvoice(d invoicing.Draft) (map[string]issuedInvoice, error) {
	customerID, err := strconv.ParseInt(strings.TrimSpace(d.CustomerRef), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("minimax: customer ref %q is not numeric", d.CustomerRef)
	}

	inv := issuedInvoice{
		Status:           "O",
		InvoiceType:      "R",
		Customer:         customerRef{CustomerID: customerID},
		Date:             d.Date.Format(time.DateOnly),
		DateDue:          d.DueDate.Format(time.DateOnly),
		DescriptionAbove: d.DescriptionAbove,
		DescriptionBelow: d.DescriptionBelow,
		Rows:             make([]invoiceRow, 0, len(d.Rows)),
	}
	for _, r := range d.Rows {
		inv.Rows = append(inv.Rows, invoiceRow{
			ItemName:          r.ItemName,
			Quantity:          json.Number(r.Quantity.Display()),
			UnitOfMeasurement: r.Unit,
			Price:             json.Number(r.Price.String()),
			VATPercent:        json.Number(r.VATPercent.String()),
		})
	}
	return map[string]issuedInvoice{"issuedInvoice": inv}, nil
}

// organisation returns the first organisation of the API user, cached.
func (c *Client) organisation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	cached := c.orgID
	c.mu.Unlock()
	if cached != 0 {
		return cached, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/currentuser/orgs", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var orgs struct {
		Rows []struct {
			Organisation struct {
				ID int64 `json:"ID"`
			} `json:"Organisation"`
			OrganisationID int64 `json:"OrganisationId"`
		} `json:"Rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orgs); err != nil {
		return 0, fmt.Errorf("minimax: decode organisations: %w", err)
	}
	if len(orgs.Rows) == 0 {
		return 0, fmt.Errorf("minimax: user has no organisations")
	}
	orgID := orgs.Rows[0].OrganisationID
	if orgID == 0 {
		orgID = orgs.Rows[0].Organisation.ID
	}

	c.mu.Lock()
	c.orgID = orgID
	c.mu.Unlock()
	return orgID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("minimax: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("minimax: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("minimax: %s %s: %w", method, endpoint, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("minimax: %s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// accessToken returns a cached token, fetching a new one with the
// password grant shortly before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {c.cfg.Username},
		"password":      {c.cfg.Password},
		"scope":         {"minimax.si"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("minimax: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("minimax: token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("minimax: token request: status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("minimax: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("minimax: empty access token")
	}

	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= time.Minute {
		ttl = 2 * time.Minute
	}
	c.token = tok.AccessToken
	c.expires = time.Now().Add(ttl - time.Minute)
	return c.token, nil
}
