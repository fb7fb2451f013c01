package finetune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textclf/internal/domain"
)

func TestExamplesJSONL(t *testing.T) {
	rec := domain.Record{Combined: "Title: Tasty; Content: <b>good</b>", Label: "positive"}
	ex := NewExample(rec, "\n\n###\n\n")
	assert.Equal(t, "Title: Tasty; Content: <b>good</b>\n\n###\n\n", ex.Prompt)
	assert.Equal(t, " positive", ex.Completion)
	assert.Equal(t, "positive", Label(ex.Completion))

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, []Example{ex, {Prompt: "b", Completion: " negative"}}))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "<b>good</b>")

	back, err := ReadJSONL(&buf)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, ex, back[0])

	_, err = ReadJSONL(strings.NewReader("{not json}\n"))
	assert.Error(t, err)
}

func TestClient_UploadAndCreateJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "fine-tune", r.FormValue("purpose"))
			file, header, err := r.FormFile("file")
			if assert.NoError(t, err) {
				data, _ := io.ReadAll(file)
				assert.Equal(t, "train.jsonl", header.Filename)
				assert.Contains(t, string(data), `"prompt"`)
			}
			json.NewEncoder(w).Encode(File{ID: "file-1", Filename: header.Filename, Purpose: "fine-tune"})
		case r.Method == http.MethodPost && r.URL.Path == "/fine_tuning/jobs":
			var req JobRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "file-1", req.TrainingFile)
			assert.Equal(t, "babbage-002", req.Model)
			if assert.NotNil(t, req.Hyperparameters) {
				assert.Equal(t, 4, req.Hyperparameters.NEpochs)
			}
			json.NewEncoder(w).Encode(Job{ID: "ftjob-1", Status: "queued", Model: req.Model})
		case r.Method == http.MethodGet && r.URL.Path == "/fine_tuning/jobs/ftjob-1":
			json.NewEncoder(w).Encode(Job{ID: "ftjob-1", Status: "succeeded", FineTunedModel: "ft:babbage-002:acme::1"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "train.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"prompt":"a","completion":" b"}`+"\n"), 0644))

	c := newClient(server.URL, "test-key", 0)
	ctx := context.Background()

	f, err := c.UploadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "file-1", f.ID)

	job, err := c.CreateJob(ctx, JobRequest{TrainingFile: f.ID, Model: "babbage-002", Hyperparameters: &Hyperparameters{NEpochs: 4}})
	require.NoError(t, err)
	assert.Equal(t, "ftjob-1", job.ID)
	assert.False(t, job.Done())

	job, err = c.GetJob(ctx, "ftjob-1")
	require.NoError(t, err)
	assert.True(t, job.Done())
	assert.Equal(t, "ft:babbage-002:acme::1", job.FineTunedModel)
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 1, req.MaxTokens)
		assert.Equal(t, 0.0, req.Temperature)
		w.Write([]byte(`{"choices":[{"text":" positive","logprobs":{"top_logprobs":[{" positive":-0.1," negative":-2.4}]}}]}`))
	}))
	defer server.Close()

	c := newClient(server.URL, "k", 0)
	comp, err := c.Complete(context.Background(), "ft:model", "review\n\n###\n\n")
	require.NoError(t, err)
	assert.Equal(t, " positive", comp.Text)
	assert.InDelta(t, -2.4, comp.TopLogprobs[" negative"], 1e-9)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid training file","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c := newClient(server.URL, "k", 0)
	_, err := c.GetJob(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid training file", apiErr.Message)
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("TEXTCLF_TEST_FT_KEY", "")
	_, err := NewClient(ClientOptions{APIKeyEnv: "TEXTCLF_TEST_FT_KEY"})
	assert.Error(t, err)
}
