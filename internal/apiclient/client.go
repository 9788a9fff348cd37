// Package apiclient is a small Go client for the ygodeck HTTP API, used by
// the terminal deck builder.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"ygodeck/internal/catalog"
	"ygodeck/internal/deck"
	apperrors "ygodeck/internal/errors"
	"ygodeck/internal/search"
)

// APIError is a non-2xx response carrying the server's error body.
type APIError struct {
	Status int
	Body   apperrors.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (%s)", e.Body.Error, e.Body.Code)
}

// Unwrap exposes the status as a search.StatusError so fetch failures can be
// categorized.
func (e *APIError) Unwrap() error {
	return &search.StatusError{Code: e.Status, Body: e.Body.Error}
}

// Session is the authenticated identity returned by login.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	UserID       uint   `json:"userId"`
	Username     string `json:"username"`
}

// DeckSummary is a row of the deck list.
type DeckSummary struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	MainCount  int       `json:"mainCount"`
	ExtraCount int       `json:"extraCount"`
}

// Deck is a stored deck with its entries.
type Deck struct {
	ID        uint         `json:"id"`
	Name      string       `json:"name"`
	MainDeck  []deck.Entry `json:"mainDeck"`
	ExtraDeck []deck.Entry `json:"extraDeck"`
}

// Client calls the API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New builds a Client for baseURL, such as http://localhost:8080/api.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Login authenticates and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, identifier, password string) (*Session, error) {
	var s Session
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &s); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.token = s.Token
	c.mu.Unlock()
	return &s, nil
}

// SearchCards runs a card search. It matches search.SearchFunc.
func (c *Client) SearchCards(ctx context.Context, f catalog.Filter) ([]catalog.Card, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	set("fname", f.Name)
	set("type", f.Type)
	set("attribute", f.Attribute)
	set("race", f.Race)
	set("level", f.Level)
	set("atk", f.Atk)
	set("def", f.Def)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if len(f.IDs) > 0 {
		ids := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = strconv.Itoa(id)
		}
		q.Set("id", strings.Join(ids, ","))
	}

	var cards []catalog.Card
	if err := c.do(ctx, http.MethodGet, "/cards", q, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// CreateDeck saves a new deck.
func (c *Client) CreateDeck(ctx context.Context, sub deck.Submission) (*Deck, error) {
	var out struct {
		Deck Deck `json:"deck"`
	}
	if err := c.do(ctx, http.MethodPost, "/decks", nil, sub, &out); err != nil {
		return nil, err
	}
	return &out.Deck, nil
}

// UpdateDeck replaces a deck's name and entries.
func (c *Client) UpdateDeck(ctx context.Context, id uint, sub deck.Submission) (*Deck, error) {
	var out struct {
		Deck Deck `json:"deck"`
	}
	if err := c.do(ctx, http.MethodPut, "/decks/"+strconv.FormatUint(uint64(id), 10), nil, sub, &out); err != nil {
		return nil, err
	}
	return &out.Deck, nil
}

// ListDecks returns the caller's decks.
func (c *Client) ListDecks(ctx context.Context) ([]DeckSummary, error) {
	var out struct {
		Decks []DeckSummary `json:"decks"`
	}
	if err := c.do(ctx, http.MethodGet, "/decks", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Decks, nil
}

// GetDeck loads one of the caller's decks.
func (c *Client) GetDeck(ctx context.Context, id uint) (*Deck, error) {
	var out struct {
		Deck Deck `json:"deck"`
	}
	if err := c.do(ctx, http.MethodGet, "/decks/"+strconv.FormatUint(uint64(id), 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Deck, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = sonic.Unmarshal(raw, &apiErr.Body)
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
