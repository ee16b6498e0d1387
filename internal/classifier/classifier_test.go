package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pageza/foodscan/backend/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// logitsFor returns logits that put most of the mass on label.
func logitsFor(label string, peak float32) []float32 {
	out := make([]float32, len(Labels))
	for i, l := range Labels {
		if l == label {
			out[i] = peak
		}
	}
	return out
}

type fakeModel struct {
	logits []float32
	err    error
}

func (m *fakeModel) Forward(ctx context.Context, input Tensor) ([]float32, error) {
	return m.logits, m.err
}

type fakeLoader struct {
	mu     sync.Mutex
	models map[types.ModelID]Model
	errs   map[types.ModelID]error
	calls  map[types.ModelID]int
}

func (l *fakeLoader) Load(ctx context.Context, id types.ModelID, checkpoint string) (Model, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = map[types.ModelID]int{}
	}
	l.calls[id]++
	if err := l.errs[id]; err != nil {
		return nil, err
	}
	return l.models[id], nil
}

func (l *fakeLoader) callCount(id types.ModelID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[id]
}

func modelsDir(t *testing.T, ids ...types.ModelID) string {
	t.Helper()
	dir := t.TempDir()
	for _, id := range ids {
		require.NoError(t, os.WriteFile(filepath.Join(dir, Checkpoints[id]), []byte("weights"), 0o644))
	}
	return dir
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	return img
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "Chicken Curry", FormatLabel("chicken_curry"))
	assert.Equal(t, "Macaroni And Cheese", FormatLabel("macaroni_and_cheese"))
	assert.Equal(t, "Pho", FormatLabel("pho"))
	assert.Equal(t, "", FormatLabel(""))
}

func TestVocabulary(t *testing.T) {
	assert.Len(t, Labels, 101)
	assert.True(t, InVocabulary("french_fries"))
	assert.False(t, InVocabulary("French Fries"))
	assert.False(t, InVocabulary("kimchi"))
}

func TestPreprocess(t *testing.T) {
	tensor := Preprocess(testImage())

	assert.Equal(t, []int{1, 3, InputSize, InputSize}, tensor.Shape)
	require.Len(t, tensor.Data, 3*InputSize*InputSize)

	plane := InputSize * InputSize
	assert.InDelta(t, (200.0/255-0.485)/0.229, tensor.Data[0], 1e-3)
	assert.InDelta(t, (120.0/255-0.456)/0.224, tensor.Data[plane], 1e-3)
	assert.InDelta(t, (40.0/255-0.406)/0.225, tensor.Data[2*plane+plane-1], 1e-3)
}

func TestDecodeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	img, format, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 64, img.Bounds().Dx())

	_, _, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}

func TestSoftmaxArgmax(t *testing.T) {
	probs := softmax([]float32{1, 3, 3, 0})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	idx, p := argmax(probs)
	assert.Equal(t, 1, idx, "first of equal maxima wins")
	assert.InDelta(t, probs[2], p, 1e-12)
}

func TestEnsemblePredict(t *testing.T) {
	t.Run("should return an empty result when every model is missing", func(t *testing.T) {
		store := NewCheckpointStore(t.TempDir(), nil, "", "", nil)
		e := NewEnsemble(NewModelCache(store, &fakeLoader{}, nil), 0.7, nil)

		got := e.Predict(context.Background(), testImage())
		assert.True(t, got.Empty())
		assert.Equal(t, "", got.Label)
		assert.Equal(t, 0.0, got.Confidence)
		assert.NotNil(t, got.Predictions)
		assert.Empty(t, got.Predictions)
	})

	t.Run("should return an empty result when every load fails", func(t *testing.T) {
		store := NewCheckpointStore(modelsDir(t, ModelOrder...), nil, "", "", nil)
		boom := errors.New("corrupt checkpoint")
		loader := &fakeLoader{errs: map[types.ModelID]error{ConvNeXt: boom, EfficientNet: boom, ViT: boom}}
		e := NewEnsemble(NewModelCache(store, loader, nil), 0.7, nil)

		assert.True(t, e.Predict(context.Background(), testImage()).Empty())
	})

	t.Run("should skip failing models and keep the most confident", func(t *testing.T) {
		store := NewCheckpointStore(modelsDir(t, ConvNeXt, EfficientNet), nil, "", "", nil)
		loader := &fakeLoader{models: map[types.ModelID]Model{
			ConvNeXt:     &fakeModel{logits: logitsFor("sushi", 6)},
			EfficientNet: &fakeModel{logits: logitsFor("ramen", 12)},
		}}
		e := NewEnsemble(NewModelCache(store, loader, nil), 0.7, nil)

		got := e.Predict(context.Background(), testImage())
		assert.Equal(t, "ramen", got.Label)
		assert.Equal(t, EfficientNet, got.Model)
		require.Len(t, got.Predictions, 2)
		assert.Equal(t, "sushi", got.Predictions[1].Label)
		assert.Greater(t, got.Confidence, got.Predictions[1].Confidence)
	})

	t.Run("should break ties by model order", func(t *testing.T) {
		store := NewCheckpointStore(modelsDir(t, ModelOrder...), nil, "", "", nil)
		loader := &fakeLoader{models: map[types.ModelID]Model{
			ConvNeXt:     &fakeModel{logits: logitsFor("pizza", 8)},
			EfficientNet: &fakeModel{logits: logitsFor("tacos", 8)},
			ViT:          &fakeModel{err: errors.New("cuda out of memory")},
		}}
		e := NewEnsemble(NewModelCache(store, loader, nil), 0.7, nil)

		got := e.Predict(context.Background(), testImage())
		want := []types.ClassificationCandidate{
			{Label: "pizza", Confidence: got.Confidence, SourceModel: ConvNeXt},
			{Label: "tacos", Confidence: got.Confidence, SourceModel: EfficientNet},
		}
		if diff := cmp.Diff(want, got.Predictions); diff != "" {
			t.Errorf("predictions mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("should reject logits of the wrong width", func(t *testing.T) {
		store := NewCheckpointStore(modelsDir(t, ViT), nil, "", "", nil)
		loader := &fakeLoader{models: map[types.ModelID]Model{ViT: &fakeModel{logits: []float32{1, 2}}}}
		e := NewEnsemble(NewModelCache(store, loader, nil), 0.7, nil)

		assert.True(t, e.Predict(context.Background(), testImage()).Empty())
	})
}

func TestShouldUseOracle(t *testing.T) {
	e := NewEnsemble(nil, 0.7, nil)
	assert.True(t, e.ShouldUseOracle(0.69))
	assert.False(t, e.ShouldUseOracle(0.7))
	assert.False(t, e.ShouldUseOracle(0.95))

	assert.True(t, NewEnsemble(nil, 0, nil).ShouldUseOracle(0.5))
}

func TestModelCacheLoadsOnce(t *testing.T) {
	store := NewCheckpointStore(modelsDir(t, ViT), nil, "", "", nil)
	loader := &fakeLoader{models: map[types.ModelID]Model{ViT: &fakeModel{logits: logitsFor("pho", 5)}}}
	cache := NewModelCache(store, loader, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := cache.GetOrLoad(context.Background(), ViT)
			assert.NoError(t, err)
			assert.NotNil(t, m)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, loader.callCount(ViT))
	assert.True(t, cache.Loaded(ViT))
}

func TestModelCacheRetriesFailedLoad(t *testing.T) {
	store := NewCheckpointStore(modelsDir(t, ConvNeXt), nil, "", "", nil)
	loader := &fakeLoader{errs: map[types.ModelID]error{ConvNeXt: errors.New("server starting")}}
	cache := NewModelCache(store, loader, nil)

	_, err := cache.GetOrLoad(context.Background(), ConvNeXt)
	require.Error(t, err)
	assert.False(t, cache.Loaded(ConvNeXt))

	loader.mu.Lock()
	loader.errs = nil
	loader.models = map[types.ModelID]Model{ConvNeXt: &fakeModel{}}
	loader.mu.Unlock()

	_, err = cache.GetOrLoad(context.Background(), ConvNeXt)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.callCount(ConvNeXt))
}

type blockingLoader struct {
	started chan struct{}
	release chan struct{}
	loadErr chan error
}

func (l *blockingLoader) Load(ctx context.Context, id types.ModelID, checkpoint string) (Model, error) {
	close(l.started)
	<-l.release
	l.loadErr <- ctx.Err()
	return &fakeModel{logits: logitsFor("ramen", 5)}, nil
}

func TestModelCacheDetachesLoadFromCaller(t *testing.T) {
	store := NewCheckpointStore(modelsDir(t, ViT), nil, "", "", nil)
	loader := &blockingLoader{
		started: make(chan struct{}),
		release: make(chan struct{}),
		loadErr: make(chan error, 1),
	}
	cache := NewModelCache(store, loader, nil)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(first, ViT)
		firstErr <- err
	}()
	<-loader.started

	second := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(context.Background(), ViT)
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(loader.release)
	assert.NoError(t, <-loader.loadErr)
	assert.NoError(t, <-second)
	assert.True(t, cache.Loaded(ViT))
}

type fakeS3 struct {
	objects map[string]string
	calls   atomic.Int32
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls.Add(1)
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestCheckpointStore(t *testing.T) {
	t.Run("should report missing checkpoints without a bucket", func(t *testing.T) {
		store := NewCheckpointStore(t.TempDir(), nil, "", "", nil)
		_, err := store.Resolve(context.Background(), ConvNeXt)
		assert.ErrorIs(t, err, ErrCheckpointMissing)
	})

	t.Run("should download a missing checkpoint once", func(t *testing.T) {
		dir := t.TempDir()
		client := &fakeS3{objects: map[string]string{"models/v1/best_model_ViT-B-16.pth": "vit-weights"}}
		store := NewCheckpointStore(dir, client, "models", "v1", nil)

		p, err := store.Resolve(context.Background(), ViT)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "best_model_ViT-B-16.pth"), p)
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "vit-weights", string(data))

		_, err = store.Resolve(context.Background(), ViT)
		require.NoError(t, err)
		assert.Equal(t, int32(1), client.calls.Load())
	})

	t.Run("should treat a missing object as a missing checkpoint", func(t *testing.T) {
		store := NewCheckpointStore(t.TempDir(), &fakeS3{}, "models", "", nil)
		_, err := store.Resolve(context.Background(), EfficientNet)
		assert.ErrorIs(t, err, ErrCheckpointMissing)
	})

	t.Run("should reject unknown models", func(t *testing.T) {
		store := NewCheckpointStore(t.TempDir(), nil, "", "", nil)
		_, err := store.Resolve(context.Background(), types.ModelID("resnet"))
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCheckpointMissing)
	})
}

func TestInferenceLoader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v2/models/convnext/ready":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/v2/models/convnext/infer":
			var req inferRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) != 1 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.Inputs[0].Datatype != "FP32" || len(req.Inputs[0].Data) != 3*InputSize*InputSize {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(inferResponse{
				ModelName: "convnext",
				Outputs:   []inferTensor{{Name: "logits", Shape: []int{1, len(Labels)}, Datatype: "FP32", Data: logitsFor("bibimbap", 9)}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	loader := NewInferenceLoader(server.URL+"/", nil)

	t.Run("should predict through the inference server", func(t *testing.T) {
		store := NewCheckpointStore(modelsDir(t, ConvNeXt), nil, "", "", nil)
		e := NewEnsemble(NewModelCache(store, loader, nil), 0.7, nil)

		got := e.Predict(context.Background(), testImage())
		assert.Equal(t, "bibimbap", got.Label)
		assert.Equal(t, ConvNeXt, got.Model)
		assert.Greater(t, got.Confidence, 0.9)
		assert.Len(t, got.Predictions, 1)
	})

	t.Run("should fail to load a model the server does not host", func(t *testing.T) {
		dir := modelsDir(t, ViT)
		_, err := loader.Load(context.Background(), ViT, filepath.Join(dir, Checkpoints[ViT]))
		assert.ErrorContains(t, err, "not ready")
	})

	t.Run("should fail on an empty checkpoint", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), Checkpoints[ConvNeXt])
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err := loader.Load(context.Background(), ConvNeXt, path)
		assert.ErrorContains(t, err, "is empty")
	})

	t.Run("should fail on a missing checkpoint", func(t *testing.T) {
		_, err := loader.Load(context.Background(), ConvNeXt, filepath.Join(t.TempDir(), "missing.pth"))
		assert.ErrorContains(t, err, "error opening checkpoint")
	})

	t.Run("should fail without a server url", func(t *testing.T) {
		_, err := NewInferenceLoader("", nil).Load(context.Background(), ViT, "unused")
		assert.Error(t, err)
	})
}
