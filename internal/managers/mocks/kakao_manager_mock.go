package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/team-ddrawry/ddrawry-server/internal/managers"
)

// MockKakaoManager simulates the Kakao provider client so handler tests run
// without outbound HTTP calls.
type MockKakaoManager struct {
	mock.Mock
}

func (m *MockKakaoManager) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockKakaoManager) ExchangeCode(ctx context.Context, code string) (*managers.KakaoToken, error) {
	args := m.Called(ctx, code)
	if token, ok := args.Get(0).(*managers.KakaoToken); ok {
		return token, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKakaoManager) FetchProfile(ctx context.Context, accessToken string) (*managers.KakaoProfile, error) {
	args := m.Called(ctx, accessToken)
	if profile, ok := args.Get(0).(*managers.KakaoProfile); ok {
		return profile, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKakaoManager) RefreshProviderToken(ctx context.Context, refreshToken string) (*managers.KakaoToken, error) {
	args := m.Called(ctx, refreshToken)
	if token, ok := args.Get(0).(*managers.KakaoToken); ok {
		return token, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockKakaoManager) ValidateToken(ctx context.Context, accessToken string) (bool, error) {
	args := m.Called(ctx, accessToken)
	return args.Bool(0), args.Error(1)
}

func (m *MockKakaoManager) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockKakaoManager) Unlink(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}
