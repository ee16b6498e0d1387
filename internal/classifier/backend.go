package classifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/types"
)

// Model runs a forward pass and returns one logit per class.
type Model interface {
	Forward(ctx context.Context, input Tensor) ([]float32, error)
}

// Loader turns a resolved checkpoint into a runnable Model.
type Loader interface {
	Load(ctx context.Context, id types.ModelID, checkpoint string) (Model, error)
}

// InferenceLoader serves models from an inference server speaking the
// KServe v2 HTTP protocol. The server hosts the same checkpoints under the
// model identifier as its name.
type InferenceLoader struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewInferenceLoader creates a loader for the server at baseURL.
func NewInferenceLoader(baseURL string, logger *zap.Logger) *InferenceLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InferenceLoader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// Load reads the local checkpoint, then checks that the server reports the
// model ready. The weights themselves run on the server; an unreadable or
// empty checkpoint (a truncated download, say) fails the load.
func (l *InferenceLoader) Load(ctx context.Context, id types.ModelID, checkpoint string) (Model, error) {
	if l.baseURL == "" {
		return nil, fmt.Errorf("no inference server configured")
	}
	digest, err := checkpointDigest(checkpoint)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v2/models/%s/ready", l.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error checking model readiness: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model %s not ready: status %d", id, resp.StatusCode)
	}

	l.logger.Info("model ready",
		zap.String("model", string(id)),
		zap.String("checkpoint", checkpoint),
		zap.String("checkpoint_sha256", digest))
	return &remoteModel{id: id, url: fmt.Sprintf("%s/v2/models/%s/infer", l.baseURL, id), client: l.client}, nil
}

func checkpointDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening checkpoint: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", fmt.Errorf("error reading checkpoint: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("checkpoint %s is empty", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type inferTensor struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float32 `json:"data"`
}

type inferRequest struct {
	Inputs []inferTensor `json:"inputs"`
}

type inferResponse struct {
	ModelName string        `json:"model_name"`
	Outputs   []inferTensor `json:"outputs"`
}

type remoteModel struct {
	id     types.ModelID
	url    string
	client *http.Client
}

func (m *remoteModel) Forward(ctx context.Context, input Tensor) ([]float32, error) {
	body, err := json.Marshal(inferRequest{Inputs: []inferTensor{{
		Name:     "input",
		Shape:    input.Shape,
		Datatype: "FP32",
		Data:     input.Data,
	}}})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference for %s failed with status %d: %s", m.id, resp.StatusCode, string(respBody))
	}

	var out inferResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if len(out.Outputs) == 0 || len(out.Outputs[0].Data) == 0 {
		return nil, fmt.Errorf("inference for %s returned no outputs", m.id)
	}
	return out.Outputs[0].Data, nil
}
