package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"textclf/internal/port"
)

// Client calls the files, fine_tuning/jobs and completions endpoints.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type ClientOptions struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	return newClient(opts.BaseURL, apiKey, opts.Timeout), nil
}

func newClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// File is an uploaded file.
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}

type Hyperparameters struct {
	NEpochs int `json:"n_epochs,omitempty"`
}

type JobRequest struct {
	TrainingFile    string           `json:"training_file"`
	ValidationFile  string           `json:"validation_file,omitempty"`
	Model           string           `json:"model"`
	Suffix          string           `json:"suffix,omitempty"`
	Hyperparameters *Hyperparameters `json:"hyperparameters,omitempty"`
}

type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job is the state of a fine-tuning job.
type Job struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	Model          string    `json:"model"`
	FineTunedModel string    `json:"fine_tuned_model"`
	TrainingFile   string    `json:"training_file"`
	ValidationFile string    `json:"validation_file"`
	TrainedTokens  int       `json:"trained_tokens"`
	CreatedAt      int64     `json:"created_at"`
	FinishedAt     int64     `json:"finished_at"`
	Error          *JobError `json:"error,omitempty"`
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	switch j.Status {
	case "succeeded", "failed", "cancelled":
		return true
	}
	return false
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Logprobs    int     `json:"logprobs"`
}

type completionResponse struct {
	Choices []struct {
		Text     string `json:"text"`
		Logprobs *struct {
			TopLogprobs []map[string]float64 `json:"top_logprobs"`
		} `json:"logprobs"`
	} `json:"choices"`
}

// UploadFile sends a JSONL file with purpose "fine-tune".
func (c *Client) UploadFile(ctx context.Context, path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "fine-tune"); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out File
	if err := c.do(ctx, http.MethodPost, "/files", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	return &out, nil
}

func (c *Client) CreateJob(ctx context.Context, req JobRequest) (*Job, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	var out Job
	if err := c.do(ctx, http.MethodPost, "/fine_tuning/jobs", "application/json", bytes.NewReader(data), &out); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &out, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodGet, "/fine_tuning/jobs/"+id, "", nil, &out); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &out, nil
}

// Complete asks model for a single greedy token after prompt.
func (c *Client) Complete(ctx context.Context, model, prompt string) (port.Completion, error) {
	data, err := json.Marshal(completionRequest{
		Model:       model,
		Prompt:      prompt,
		MaxTokens:   1,
		Temperature: 0,
		Logprobs:    5,
	})
	if err != nil {
		return port.Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out completionResponse
	if err := c.do(ctx, http.MethodPost, "/completions", "application/json", bytes.NewReader(data), &out); err != nil {
		return port.Completion{}, fmt.Errorf("completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return port.Completion{}, fmt.Errorf("completion: response has no choices")
	}

	choice := out.Choices[0]
	comp := port.Completion{Text: choice.Text}
	if choice.Logprobs != nil && len(choice.Logprobs.TopLogprobs) > 0 {
		comp.TopLogprobs = choice.Logprobs.TopLogprobs[0]
	}
	return comp, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
