package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ygodeck/internal/auth"
	apperrors "ygodeck/internal/errors"
	"ygodeck/internal/model"
)

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		email         string
		password      string
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name:     "successful registration",
			username: "yugi",
			email:    "Yugi@Example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository, tok *MockTokenStore) {
				m.On("ExistsByUsernameOrEmail", mock.Anything, "yugi", "yugi@example.com").Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
				tok.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(1), "yugi", auth.RefreshTokenExpiry).Return(nil)
			},
		},
		{
			name:     "user already exists",
			username: "kaiba",
			email:    "kaiba@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository, _ *MockTokenStore) {
				m.On("ExistsByUsernameOrEmail", mock.Anything, "kaiba", "kaiba@example.com").Return(true, nil)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
		{
			name:     "duplicate key on insert",
			username: "joey",
			email:    "joey@example.com",
			password: "password123",
			setupMock: func(m *MockUserRepository, _ *MockTokenStore) {
				m.On("ExistsByUsernameOrEmail", mock.Anything, "joey", "joey@example.com").Return(false, nil)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)

			service := NewAuthService(mockRepo, auth.NewJWTService("test-secret"), mockTokenStore)
			session, err := service.Register(context.Background(), tt.username, tt.email, tt.password)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, session)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, session.AccessToken)
				assert.NotEmpty(t, session.RefreshToken)
				assert.Equal(t, tt.username, session.User.Username)
				assert.Equal(t, "yugi@example.com", session.User.Email)
				assert.NotEqual(t, tt.password, session.User.PasswordHash)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name          string
		identifier    string
		password      string
		setupMock     func(*testing.T, *MockUserRepository, *MockTokenStore)
		expectedError error
	}{
		{
			name:       "login by username",
			identifier: "yugi",
			password:   "password123",
			setupMock: func(t *testing.T, mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByIdentifier", mock.Anything, "yugi").Return(&model.User{
					ID: 7, Username: "yugi", Email: "yugi@example.com", PasswordHash: hashed(t, "password123"),
				}, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(7), "yugi", mock.Anything).Return(nil)
			},
		},
		{
			name:       "login by email is case insensitive",
			identifier: " YUGI@example.com ",
			password:   "password123",
			setupMock: func(t *testing.T, mRepo *MockUserRepository, mToken *MockTokenStore) {
				mRepo.On("FindByIdentifier", mock.Anything, "yugi@example.com").Return(&model.User{
					ID: 7, Username: "yugi", Email: "yugi@example.com", PasswordHash: hashed(t, "password123"),
				}, nil)
				mToken.On("StoreRefreshToken", mock.Anything, mock.Anything, uint(7), "yugi", mock.Anything).Return(nil)
			},
		},
		{
			name:       "unknown identifier",
			identifier: "nobody",
			password:   "password123",
			setupMock: func(_ *testing.T, mRepo *MockUserRepository, _ *MockTokenStore) {
				mRepo.On("FindByIdentifier", mock.Anything, "nobody").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:       "wrong password gives the same error",
			identifier: "yugi",
			password:   "wrong",
			setupMock: func(t *testing.T, mRepo *MockUserRepository, _ *MockTokenStore) {
				mRepo.On("FindByIdentifier", mock.Anything, "yugi").Return(&model.User{
					ID: 7, Username: "yugi", PasswordHash: hashed(t, "password123"),
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(t, mockRepo, mockTokenStore)

			jwtService := auth.NewJWTService("test-secret")
			service := NewAuthService(mockRepo, jwtService, mockTokenStore)

			session, err := service.Login(context.Background(), tt.identifier, tt.password)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, session)
			} else {
				require.NoError(t, err)
				claims, err := jwtService.ValidateToken(session.AccessToken)
				require.NoError(t, err)
				assert.Equal(t, uint(7), claims.UserID)
				assert.Equal(t, "yugi", claims.Username)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	tokenID, refresh, err := jwtService.GenerateRefreshToken(7, "yugi")
	require.NoError(t, err)
	access, err := jwtService.GenerateAccessToken(7, "yugi")
	require.NoError(t, err)

	tests := []struct {
		name          string
		token         string
		setupMock     func(*MockTokenStore)
		expectedError error
	}{
		{
			name:  "valid refresh token",
			token: refresh,
			setupMock: func(m *MockTokenStore) {
				m.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(7), "yugi", nil)
			},
		},
		{
			name:  "revoked refresh token",
			token: refresh,
			setupMock: func(m *MockTokenStore) {
				m.On("GetRefreshToken", mock.Anything, tokenID).Return(uint(0), "", errors.New("refresh token not found"))
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name:          "access token is not a refresh token",
			token:         access,
			setupMock:     func(*MockTokenStore) {},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name:          "garbage",
			token:         "not-a-jwt",
			setupMock:     func(*MockTokenStore) {},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockTokenStore)
			service := NewAuthService(new(MockUserRepository), jwtService, mockTokenStore)

			token, err := service.RefreshToken(context.Background(), tt.token)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Empty(t, token)
			} else {
				require.NoError(t, err)
				claims, err := jwtService.ValidateToken(token)
				require.NoError(t, err)
				assert.Empty(t, claims.ID)
			}
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret")
	tokenID, refresh, err := jwtService.GenerateRefreshToken(7, "yugi")
	require.NoError(t, err)

	mockTokenStore := new(MockTokenStore)
	mockTokenStore.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
	service := NewAuthService(new(MockUserRepository), jwtService, mockTokenStore)

	assert.NoError(t, service.Logout(context.Background(), refresh))
	assert.Equal(t, apperrors.ErrInvalidRefreshToken, service.Logout(context.Background(), "junk"))
	mockTokenStore.AssertExpectations(t)
}
