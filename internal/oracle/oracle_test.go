package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/pageza/foodscan/backend/internal/testutil"
	"github.com/pageza/foodscan/backend/internal/types"
)

const saladJSON = `{
  "foodName": "Greek Salad",
  "confidence": 0.91,
  "calories": 320,
  "ingredients": ["tomato", "cucumber", "feta"],
  "nutritionalBreakdown": {"protein": "9g", "fats": "24g", "sodium": "700mg", "vitamins": ["Vitamin C"], "minerals": []},
  "foodQualityCycle": {"freshness": "High", "preparation": "raw", "healthScore": 8, "qualityIndicators": ["fresh vegetables"]},
  "portionSize": "1 bowl",
  "mealType": "Lunch"
}`

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.prompts)
	f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	f.configs = append(f.configs, cfg)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(reply, genai.RoleModel)}},
	}, nil
}

var photo = types.FoodImage{Filename: "lunch.jpg", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff, 0xe0}}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}

func TestParseRecord(t *testing.T) {
	t.Run("should parse a fenced detailed record", func(t *testing.T) {
		record, err := parseRecord("```json\n"+saladJSON+"\n```", false)
		require.NoError(t, err)
		assert.Equal(t, "Greek Salad", record.FoodName)
		assert.Equal(t, 320.0, record.CalorieCount())
		assert.Equal(t, 700.0, record.NutritionalBreakdown.Sodium.Value())
		assert.Equal(t, 8.0, record.FoodQualityCycle.HealthScore)
	})

	t.Run("should accept calories given as a string", func(t *testing.T) {
		body := strings.Replace(saladJSON, `"calories": 320`, `"calories": "320 kcal"`, 1)
		record, err := parseRecord(body, true)
		require.NoError(t, err)
		assert.Equal(t, 320.0, record.CalorieCount())
	})

	t.Run("should report non-JSON as malformed", func(t *testing.T) {
		_, err := parseRecord("I think this is a salad.", false)
		assert.Equal(t, types.FailureOracleMalformed, types.KindOf(err))

		var ae *types.AnalysisError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "Failed to parse AI response", ae.Message)
		assert.NotEmpty(t, ae.Details)
	})

	t.Run("should report a missing required field as incomplete", func(t *testing.T) {
		body := `{"foodName": "Soup", "confidence": 0.5, "calories": 100, "ingredients": []}`
		_, err := parseRecord(body, false)
		assert.Equal(t, types.FailureOracleIncomplete, types.KindOf(err))
		assert.Contains(t, err.Error(), "nutritionalBreakdown")
	})

	t.Run("should require the quality cycle only for full analysis", func(t *testing.T) {
		body := `{"foodName": "Soup", "confidence": 0.5, "calories": 100, "ingredients": [], "nutritionalBreakdown": {}}`
		_, err := parseRecord(body, false)
		assert.NoError(t, err)

		_, err = parseRecord(body, true)
		assert.Equal(t, types.FailureOracleIncomplete, types.KindOf(err))
		assert.Contains(t, err.Error(), "foodQualityCycle")
	})

	t.Run("should reject an empty food name", func(t *testing.T) {
		body := `{"foodName": "", "confidence": 0.5, "calories": 100, "ingredients": [], "nutritionalBreakdown": {}}`
		_, err := parseRecord(body, false)
		assert.Equal(t, types.FailureOracleIncomplete, types.KindOf(err))
	})
}

func TestGeminiAnalyze(t *testing.T) {
	t.Run("should use the detailed prompt for a known food", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{saladJSON}}
		g := newGemini(gen, "", nil)
		conf := 0.91

		record, err := g.Analyze(context.Background(), photo, AnalysisRequest{FoodName: "Greek Salad", Confidence: &conf, ModelUsed: "VIT"})
		require.NoError(t, err)
		assert.Equal(t, "VIT", record.ModelUsed)
		require.Len(t, gen.prompts, 1)
		assert.Contains(t, gen.prompts[0], "This is an image of Greek Salad.")
		assert.Contains(t, gen.prompts[0], `"confidence": 0.91`)
		assert.Contains(t, gen.prompts[0], "1-4")
		assert.Equal(t, "application/json", gen.configs[0].ResponseMIMEType)
	})

	t.Run("should use the full prompt and default attribution", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{saladJSON}}
		record, err := newGemini(gen, "", nil).Analyze(context.Background(), photo, AnalysisRequest{})
		require.NoError(t, err)
		assert.Equal(t, AttributionOracle, record.ModelUsed)
		assert.Contains(t, gen.prompts[0], "Analyze this food image")
	})

	t.Run("should report call failures as unavailable", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{errors.New("quota exceeded")}}
		_, err := newGemini(gen, "", nil).Analyze(context.Background(), photo, AnalysisRequest{})
		assert.Equal(t, types.FailureOracleUnavailable, types.KindOf(err))
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("should report an empty reply as unavailable", func(t *testing.T) {
		gen := &fakeGenerator{replies: []string{"  "}}
		_, err := newGemini(gen, "", nil).Analyze(context.Background(), photo, AnalysisRequest{})
		assert.Equal(t, types.FailureOracleUnavailable, types.KindOf(err))
	})
}

func TestGeminiVerify(t *testing.T) {
	tests := []struct {
		reply string
		want  bool
	}{
		{"YES", true},
		{"yes, it is", true},
		{"True", true},
		{"NO", false},
		{"It might be lasagna", false},
	}
	for _, tt := range tests {
		t.Run("should read "+tt.reply, func(t *testing.T) {
			gen := &fakeGenerator{replies: []string{tt.reply}}
			got, err := newGemini(gen, "", nil).Verify(context.Background(), photo, "Pad Thai")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Is this image showing Pad Thai? Answer with just 'YES' or 'NO'.", gen.prompts[0])
		})
	}
}

func TestGeminiIdentify(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"\"Chicken Curry.\"\nIt is served with rice."}}
	name, err := newGemini(gen, "", nil).Identify(context.Background(), photo)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Curry", name)
}

func TestGeminiRecommend(t *testing.T) {
	record := &types.FoodRecord{FoodName: "Ramen"}

	gen := &fakeGenerator{replies: []string{"```json\n[\"Drink water\", \"Skip the broth\"]\n```"}}
	advice, err := newGemini(gen, "", nil).Recommend(context.Background(), record, []string{"hypertension"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Drink water", "Skip the broth"}, advice)
	assert.Contains(t, gen.prompts[0], "hypertension")

	gen = &fakeGenerator{replies: []string{"not json"}}
	advice, err = newGemini(gen, "", nil).Recommend(context.Background(), record, nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"Consult with a healthcare professional for personalized advice"}, advice)
}

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Identify(ctx context.Context, img types.FoodImage) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

func (m *mockOracle) Verify(ctx context.Context, img types.FoodImage, label string) (bool, error) {
	args := m.Called(ctx, img, label)
	return args.Bool(0), args.Error(1)
}

func (m *mockOracle) Analyze(ctx context.Context, img types.FoodImage, req AnalysisRequest) (*types.FoodRecord, error) {
	args := m.Called(ctx, img, req)
	record, _ := args.Get(0).(*types.FoodRecord)
	return record, args.Error(1)
}

var unavailable = types.NewAnalysisError(types.FailureOracleUnavailable, "Failed to analyze food image", errors.New("connection reset"))

func TestRetrying(t *testing.T) {
	t.Run("should retry unavailable calls until one succeeds", func(t *testing.T) {
		m := &mockOracle{}
		m.On("Identify", mock.Anything, photo).Return("", unavailable).Twice()
		m.On("Identify", mock.Anything, photo).Return("Sushi", nil).Once()

		name, err := WithRetry(m, time.Second, 3, time.Millisecond, nil).Identify(context.Background(), photo)
		require.NoError(t, err)
		assert.Equal(t, "Sushi", name)
		m.AssertNumberOfCalls(t, "Identify", 3)
	})

	t.Run("should give up after the attempt budget", func(t *testing.T) {
		m := &mockOracle{}
		m.On("Analyze", mock.Anything, photo, AnalysisRequest{}).Return(nil, unavailable)

		_, err := WithRetry(m, time.Second, 3, time.Millisecond, nil).Analyze(context.Background(), photo, AnalysisRequest{})
		assert.Equal(t, types.FailureOracleUnavailable, types.KindOf(err))
		assert.Contains(t, err.Error(), "after 3 attempts")
		m.AssertNumberOfCalls(t, "Analyze", 3)
	})

	t.Run("should not retry malformed answers", func(t *testing.T) {
		m := &mockOracle{}
		malformed := types.NewAnalysisError(types.FailureOracleMalformed, "Failed to parse AI response", errors.New("bad json"))
		m.On("Analyze", mock.Anything, photo, AnalysisRequest{}).Return(nil, malformed)

		_, err := WithRetry(m, time.Second, 3, time.Millisecond, nil).Analyze(context.Background(), photo, AnalysisRequest{})
		assert.Equal(t, types.FailureOracleMalformed, types.KindOf(err))
		m.AssertNumberOfCalls(t, "Analyze", 1)
	})

	t.Run("should bound each call with the timeout", func(t *testing.T) {
		m := &mockOracle{}
		m.On("Verify", mock.Anything, photo, "Pho").Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		}).Return(true, nil)

		ok, err := WithRetry(m, 50*time.Millisecond, 1, 0, nil).Verify(context.Background(), photo, "Pho")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("should stop waiting when the caller gives up", func(t *testing.T) {
		m := &mockOracle{}
		m.On("Identify", mock.Anything, photo).Return("", unavailable)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WithRetry(m, time.Second, 5, time.Hour, nil).Identify(ctx, photo)
		assert.ErrorIs(t, err, context.Canceled)
		m.AssertNumberOfCalls(t, "Identify", 1)
	})
}

func TestCacheKey(t *testing.T) {
	t.Run("should end with the attribution", func(t *testing.T) {
		a := cacheKey(photo, AnalysisRequest{ModelUsed: "VIT"})
		b := cacheKey(photo, AnalysisRequest{})
		assert.True(t, strings.HasPrefix(a, "analysis:"))
		assert.True(t, strings.HasSuffix(a, ":VIT"))
		assert.True(t, strings.HasSuffix(b, ":"+AttributionOracle))
		assert.NotEqual(t, a, b)
	})

	t.Run("should separate full and detailed analyses", func(t *testing.T) {
		full := cacheKey(photo, AnalysisRequest{ModelUsed: AttributionOracle})
		detailed := cacheKey(photo, AnalysisRequest{FoodName: "Pizza", ModelUsed: AttributionOracle})
		assert.NotEqual(t, full, detailed)
	})

	t.Run("should separate detailed analyses of different foods", func(t *testing.T) {
		pizza := cacheKey(photo, AnalysisRequest{FoodName: "Pizza", ModelUsed: AttributionOracle})
		curry := cacheKey(photo, AnalysisRequest{FoodName: "Chicken Curry", ModelUsed: AttributionOracle})
		assert.NotEqual(t, pizza, curry)
	})

	t.Run("should ignore case and padding in the food name", func(t *testing.T) {
		a := cacheKey(photo, AnalysisRequest{FoodName: "Pizza", ModelUsed: "VIT"})
		b := cacheKey(photo, AnalysisRequest{FoodName: " pizza ", ModelUsed: "VIT"})
		assert.Equal(t, a, b)
	})

	t.Run("should separate echoed confidences", func(t *testing.T) {
		low, high := 0.72, 0.91
		a := cacheKey(photo, AnalysisRequest{FoodName: "Pizza", Confidence: &low, ModelUsed: "VIT"})
		b := cacheKey(photo, AnalysisRequest{FoodName: "Pizza", Confidence: &high, ModelUsed: "VIT"})
		c := cacheKey(photo, AnalysisRequest{FoodName: "Pizza", ModelUsed: "VIT"})
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, a, c)
	})
}

func TestCachedAnalyzeKeepsRequestsApart(t *testing.T) {
	rdb := testutil.StartRedis(t)

	m := &mockOracle{}
	full := AnalysisRequest{ModelUsed: AttributionOracle}
	detailed := AnalysisRequest{FoodName: "Pizza", ModelUsed: AttributionOracle}
	m.On("Analyze", mock.Anything, photo, full).Return(&types.FoodRecord{FoodName: "Flatbread", ModelUsed: AttributionOracle}, nil).Once()
	m.On("Analyze", mock.Anything, photo, detailed).Return(&types.FoodRecord{FoodName: "Pizza", ModelUsed: AttributionOracle}, nil).Once()

	cached := WithCache(m, rdb, time.Minute, nil)
	ctx := context.Background()

	_, err := cached.Analyze(ctx, photo, full)
	require.NoError(t, err)
	got, err := cached.Analyze(ctx, photo, detailed)
	require.NoError(t, err)

	assert.Equal(t, "Pizza", got.FoodName)
	m.AssertNumberOfCalls(t, "Analyze", 2)
}

func TestCachedAnalyze(t *testing.T) {
	rdb := testutil.StartRedis(t)

	m := &mockOracle{}
	req := AnalysisRequest{FoodName: "Greek Salad", ModelUsed: "CONVNEXT"}
	m.On("Analyze", mock.Anything, photo, req).Return(&types.FoodRecord{FoodName: "Greek Salad", ModelUsed: "CONVNEXT"}, nil).Once()

	cached := WithCache(m, rdb, time.Minute, nil)
	ctx := context.Background()

	first, err := cached.Analyze(ctx, photo, req)
	require.NoError(t, err)
	second, err := cached.Analyze(ctx, photo, req)
	require.NoError(t, err)

	assert.Equal(t, first.FoodName, second.FoodName)
	assert.Equal(t, "CONVNEXT", second.ModelUsed)
	m.AssertNumberOfCalls(t, "Analyze", 1)

	ttl, err := rdb.TTL(ctx, cacheKey(photo, req)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
