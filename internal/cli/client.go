package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TaskResponse — задача из журнала отправителя.
type TaskResponse struct {
	TaskID    string         `json:"task_id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Status    string         `json:"status"`
	CreatedAt string         `json:"created_at"`
}

// TaskDetailResponse — задача вместе с результатами.
type TaskDetailResponse struct {
	TaskResponse
	Results []ResultResponse `json:"results"`
}

// ResultResponse — результат из Result Store.
type ResultResponse struct {
	TaskID      string         `json:"task_id"`
	Type        string         `json:"type"`
	Result      map[string]any `json:"result"`
	ProcessedAt string         `json:"processed_at"`
}

// --- Request types ---

// ConvertCurrencyRequest — отправка convert_currency.
type ConvertCurrencyRequest struct {
	Amount       float64 `json:"amount"`
	FromCurrency string  `json:"fromCurrency"`
	ToCurrency   string  `json:"toCurrency"`
}

// CalculateInterestRequest — отправка calculate_interest.
type CalculateInterestRequest struct {
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annualRate"`
	Days       float64 `json:"days"`
}

type submitRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
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

// --- Client ---

// Client — HTTP-клиент для Conveyor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Tasks ---

// SubmitTask отправляет задачу и возвращает её ID.
func (c *Client) SubmitTask(taskType string, payload any) (string, error) {
	var resp submitResponse
	err := c.post("/api/v1/tasks", submitRequest{Type: taskType, Payload: payload}, &resp)
	return resp.TaskID, err
}

// ListTasks возвращает журнал отправленных задач.
func (c *Client) ListTasks() ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", &tasks)
	return tasks, err
}

// GetTask возвращает задачу и её результаты.
func (c *Client) GetTask(id string) (*TaskDetailResponse, error) {
	var task TaskDetailResponse
	err := c.get("/api/v1/tasks/"+id, &task)
	return &task, err
}

// --- Results ---

// ListResults возвращает все собранные результаты.
func (c *Client) ListResults() ([]ResultResponse, error) {
	var results []ResultResponse
	err := c.list("/api/v1/results", &results)
	return results, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
