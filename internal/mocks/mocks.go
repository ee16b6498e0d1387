// Package mocks holds testify mocks of the pipeline's interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodscan/backend/internal/oracle"
	"github.com/pageza/foodscan/backend/internal/types"
)

// MockAnalysisService is a mock implementation of service.AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, img types.FoodImage, profile types.HealthProfile) (*types.AnalysisResponse, error) {
	args := m.Called(ctx, img, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AnalysisResponse), args.Error(1)
}

// MockOracle is a mock implementation of oracle.Oracle
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Identify(ctx context.Context, img types.FoodImage) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

func (m *MockOracle) Verify(ctx context.Context, img types.FoodImage, label string) (bool, error) {
	args := m.Called(ctx, img, label)
	return args.Bool(0), args.Error(1)
}

func (m *MockOracle) Analyze(ctx context.Context, img types.FoodImage, req oracle.AnalysisRequest) (*types.FoodRecord, error) {
	args := m.Called(ctx, img, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.FoodRecord), args.Error(1)
}

// MockAdvisor is a mock implementation of oracle.Advisor
type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) Recommend(ctx context.Context, record *types.FoodRecord, conditions []string) ([]string, error) {
	args := m.Called(ctx, record, conditions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
