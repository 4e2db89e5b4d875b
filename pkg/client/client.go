// Package client is a Go client for the patient-facing clinic API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"

	"github.com/osirix/clinique-api/internal/model"
	"github.com/osirix/clinique-api/pkg/httputil"
)

var (
	// ErrUnauthorized is returned when the API rejects the stored token.
	// The token has been cleared by the time it is returned.
	ErrUnauthorized = errors.New("unauthorized: please log in again")
	// ErrReasonRequired is returned by CancelAppointment before any request
	// is sent.
	ErrReasonRequired = errors.New("a cancellation reason is required")
)

// Config is read from CLINIQUE_API_* environment variables.
type Config struct {
	URL     string        `envconfig:"URL" default:"http://localhost:3001"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// LoadConfig reads CLINIQUE_API_URL and CLINIQUE_API_TIMEOUT.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("CLINIQUE_API", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load client config: %w", err)
	}
	return cfg, nil
}

// APIError is a non-2xx answer carrying the server's message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Status     string               `json:"status"`
	Message    string               `json:"message,omitempty"`
	Data       json.RawMessage      `json:"data,omitempty"`
	Pagination *httputil.Pagination `json:"pagination,omitempty"`
}

// Availability is the answer of GET /appointments/availability/:date.
type Availability struct {
	Date             model.Date `json:"date"`
	Service          string     `json:"service,omitempty"`
	UnavailableSlots []string   `json:"unavailable_slots"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:3001"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/") + "/api/v1",
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// SetToken stores the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run after a 401 cleared the token, which
// is where callers send the user back to the login screen.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) ListConsultationTypes(ctx context.Context, category model.ConsultationCategory) ([]*model.ConsultationType, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", string(category))
	}
	var types []*model.ConsultationType
	_, err := c.do(ctx, http.MethodGet, "/consultation-types", query, nil, &types)
	return types, err
}

func (c *Client) DaySlots(ctx context.Context) ([]string, error) {
	var slots []string
	_, err := c.do(ctx, http.MethodGet, "/appointments/slots", nil, nil, &slots)
	return slots, err
}

// UnavailableSlots lists the booked times on date, optionally scoped to a
// consultation type name.
func (c *Client) UnavailableSlots(ctx context.Context, date model.Date, service string) ([]string, error) {
	query := url.Values{}
	if service != "" {
		query.Set("service", service)
	}
	var availability Availability
	if _, err := c.do(ctx, http.MethodGet, "/appointments/availability/"+date.String(), query, nil, &availability); err != nil {
		return nil, err
	}
	return availability.UnavailableSlots, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.CreatedAppointment, error) {
	var created model.CreatedAppointment
	if _, err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) MyAppointments(ctx context.Context, page, limit int) ([]*model.Appointment, *httputil.Pagination, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var appointments []*model.Appointment
	pagination, err := c.do(ctx, http.MethodGet, "/appointments/my-appointments", query, nil, &appointments)
	if err != nil {
		return nil, nil, err
	}
	return appointments, pagination, nil
}

func (c *Client) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	if _, err := c.do(ctx, http.MethodGet, "/appointments/"+id.String(), nil, nil, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	var appointment model.Appointment
	if _, err := c.do(ctx, http.MethodPatch, "/appointments/"+id.String(), nil, req, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (c *Client) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*model.Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	var appointment model.Appointment
	body := model.CancelAppointmentRequest{Reason: reason}
	if _, err := c.do(ctx, http.MethodDelete, "/appointments/"+id.String(), nil, body, &appointment); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*httputil.Pagination, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized()
		return nil, ErrUnauthorized
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || env.Status != "success" {
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return env.Pagination, nil
}

func (c *Client) handleUnauthorized() {
	c.mu.Lock()
	c.token = ""
	hook := c.onUnauthorized
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
}
