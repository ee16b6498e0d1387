package classifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/types"
)

// Model identifiers in evaluation order.
const (
	ConvNeXt     types.ModelID = "convnext"
	EfficientNet types.ModelID = "efficientnet"
	ViT          types.ModelID = "vit"
)

// ModelOrder is the fixed order models are evaluated and ranked in.
var ModelOrder = []types.ModelID{ConvNeXt, EfficientNet, ViT}

// Checkpoints maps each model to its checkpoint filename.
var Checkpoints = map[types.ModelID]string{
	ConvNeXt:     "best_model_ConvNeXt-B.pth",
	EfficientNet: "best_model_EfficientNetV2-M.pth",
	ViT:          "best_model_ViT-B-16.pth",
}

// ErrCheckpointMissing is returned when a checkpoint exists neither locally
// nor in the configured bucket.
var ErrCheckpointMissing = errors.New("checkpoint not found")

// S3API is the part of the S3 client the store needs.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// CheckpointStore resolves checkpoint files under a models directory,
// downloading them from S3 first when a bucket is configured.
type CheckpointStore struct {
	dir    string
	s3     S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewCheckpointStore creates a store rooted at dir. client may be nil, in
// which case only local files are considered.
func NewCheckpointStore(dir string, client S3API, bucket, prefix string, logger *zap.Logger) *CheckpointStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointStore{dir: dir, s3: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Path returns where the checkpoint for id lives locally.
func (s *CheckpointStore) Path(id types.ModelID) (string, error) {
	name, ok := Checkpoints[id]
	if !ok {
		return "", fmt.Errorf("unknown model %q", id)
	}
	return filepath.Join(s.dir, name), nil
}

// Present reports whether the checkpoint for id is on local disk.
func (s *CheckpointStore) Present(id types.ModelID) bool {
	p, err := s.Path(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Resolve returns the local path of the checkpoint for id, fetching it from
// the bucket when it is missing locally.
func (s *CheckpointStore) Resolve(ctx context.Context, id types.ModelID) (string, error) {
	p, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if s.Present(id) {
		return p, nil
	}
	if s.s3 == nil || s.bucket == "" {
		return "", fmt.Errorf("%w: %s", ErrCheckpointMissing, p)
	}

	key := path.Join(s.prefix, Checkpoints[id])
	s.logger.Info("fetching checkpoint from bucket",
		zap.String("model", string(id)),
		zap.String("bucket", s.bucket),
		zap.String("key", key))

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return "", fmt.Errorf("%w: s3://%s/%s", ErrCheckpointMissing, s.bucket, key)
		}
		return "", fmt.Errorf("failed to fetch checkpoint %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create models dir: %w", err)
	}

	// Write to a temp file first so a partial download never looks present.
	tmp, err := os.CreateTemp(s.dir, Checkpoints[id]+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download checkpoint %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to install checkpoint: %w", err)
	}
	return p, nil
}
