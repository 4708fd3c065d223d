package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// LeadResponse — lead из API.
type LeadResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Status          string `json:"status"`
	EmailInterval   int    `json:"email_interval"`
	LastContactedAt string `json:"last_contacted_at,omitempty"`
	NextDueAt       string `json:"next_due_at,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ImportResponse — результат импорта.
type ImportResponse struct {
	Imported int            `json:"imported"`
	Leads    []LeadResponse `json:"leads"`
}

// TestLeadResponse — результат test-trigger.
type TestLeadResponse struct {
	Lead      LeadResponse `json:"lead"`
	EmailSent bool         `json:"email_sent"`
	Error     string       `json:"error,omitempty"`
}

// PassResponse — итоги прохода.
type PassResponse struct {
	ID             string `json:"id"`
	StartedAt      string `json:"started_at"`
	DurationMS     int64  `json:"duration_ms"`
	Evaluated      int    `json:"evaluated"`
	Due            int    `json:"due"`
	Sent           int    `json:"sent"`
	DeliveryFailed int    `json:"delivery_failed"`
	UpdateFailed   int    `json:"update_failed"`
	Skipped        int    `json:"skipped"`
}

// ListLeadsOpts — параметры фильтрации leads.
type ListLeadsOpts struct {
	Status string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка, возвращённая API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для followup API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Проход рассылки выполняется синхронно и может занять время.
			Timeout: 5 * time.Minute,
		},
	}
}

// --- Leads ---

// ListLeads возвращает leads с фильтрацией.
func (c *Client) ListLeads(ctx context.Context, opts ListLeadsOpts) ([]LeadResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var leads []LeadResponse
	err := c.list(ctx, "/api/v1/leads", params, &leads)
	return leads, err
}

// ImportLeads импортирует адреса. interval <= 0 — интервал по умолчанию.
func (c *Client) ImportLeads(ctx context.Context, emails []string, interval int) (*ImportResponse, error) {
	body := map[string]any{"leads": emails}
	if interval > 0 {
		body["email_interval"] = interval
	}
	var res ImportResponse
	err := c.post(ctx, "/api/v1/leads/bulk", body, &res)
	return &res, err
}

// GetLead возвращает lead по ID.
func (c *Client) GetLead(ctx context.Context, id string) (*LeadResponse, error) {
	var lead LeadResponse
	err := c.get(ctx, "/api/v1/leads/"+url.PathEscape(id), &lead)
	return &lead, err
}

// SetLeadStatus меняет статус lead'а.
func (c *Client) SetLeadStatus(ctx context.Context, id, status string) (*LeadResponse, error) {
	var lead LeadResponse
	body := map[string]string{"status": status}
	err := c.put(ctx, "/api/v1/leads/"+url.PathEscape(id)+"/status", body, &lead)
	return &lead, err
}

// DeleteLead удаляет lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.doData(ctx, http.MethodDelete, "/api/v1/leads/"+url.PathEscape(id), nil, nil)
}

// DeleteAllLeads удаляет все leads и возвращает их количество.
func (c *Client) DeleteAllLeads(ctx context.Context) (int64, error) {
	var res struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.doData(ctx, http.MethodDelete, "/api/v1/leads", nil, &res)
	return res.Deleted, err
}

// TestLeadEmail создаёт test lead и отправляет приветственное письмо.
func (c *Client) TestLeadEmail(ctx context.Context, email string) (*TestLeadResponse, error) {
	var res TestLeadResponse
	err := c.post(ctx, "/api/v1/test-lead-email", map[string]string{"email": email}, &res)
	return &res, err
}

// --- Passes ---

// RunPass запускает проход рассылки и ждёт его завершения.
func (c *Client) RunPass(ctx context.Context) (*PassResponse, error) {
	var res PassResponse
	err := c.post(ctx, "/api/v1/passes", nil, &res)
	return &res, err
}

// LastPass возвращает итоги последнего прохода.
func (c *Client) LastPass(ctx context.Context) (*PassResponse, error) {
	var res PassResponse
	err := c.get(ctx, "/api/v1/passes/last", &res)
	return &res, err
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doData(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doData(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	return c.doData(ctx, http.MethodPut, path, body, result)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent || result == nil {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
