package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resvalidator/internal/models"
	"resvalidator/internal/services"
	apperrors "resvalidator/pkg/errors"
	"resvalidator/pkg/logger"
	"resvalidator/pkg/testutil"
	"resvalidator/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    string
		setupMock      func(*MockSession)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "Correct Password",
			requestBody: `{"password":"IDNIC2026"}`,
			setupMock: func(m *MockSession) {
				m.On("Login", "IDNIC2026").Return(nil)
				m.On("State").Return(services.SessionAuthenticated)
				m.On("IsPrivileged").Return(true)
			},
			expectedStatus: 200,
			expectedBody:   `{"state":"authenticated","privileged":true}`,
		},
		{
			name:        "Wrong Password",
			requestBody: `{"password":"nope"}`,
			setupMock: func(m *MockSession) {
				m.On("Login", "nope").Return(apperrors.ErrInvalidPassword)
			},
			expectedStatus: 401,
			expectedBody:   `{"error":"invalid password"}`,
		},
		{
			name:           "Missing Password",
			requestBody:    `{}`,
			setupMock:      func(m *MockSession) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid request payload"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSession := new(MockSession)
			tt.setupMock(mockSession)

			handler := NewSessionHandler(mockSession, logger.NewDiscardLogger())
			router := gin.New()
			router.POST("/api/v1/session/login", handler.Login)

			req := httptest.NewRequest("POST", "/api/v1/session/login", strings.NewReader(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockSession.AssertExpectations(t)
		})
	}
}

func TestLogout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockSession := new(MockSession)
	mockSession.On("Logout").Return(nil)
	mockSession.On("State").Return(services.SessionAnonymous)
	mockSession.On("IsPrivileged").Return(false)

	handler := NewSessionHandler(mockSession, logger.NewDiscardLogger())
	router := gin.New()
	router.POST("/api/v1/session/logout", handler.Logout)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/session/logout", nil))

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"state":"anonymous","privileged":false}`, w.Body.String())
}

func TestTouchMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockSession := new(MockSession)
	mockSession.On("Touch").Return()
	mockSession.On("State").Return(services.SessionAuthenticated)
	mockSession.On("IsPrivileged").Return(true)

	handler := NewSessionHandler(mockSession, logger.NewDiscardLogger())
	router := gin.New()
	router.Use(handler.Touch())
	router.GET("/api/v1/session", handler.Get)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/session", nil))
		assert.Equal(t, 200, w.Code)
	}
	mockSession.AssertNumberOfCalls(t, "Touch", 3)
}

func TestGetSession_ReportsIdleExpiryOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)

	session := services.NewSession(testutil.NewMemoryState(), "secret", 20*time.Millisecond, nil, logger.NewDiscardLogger())
	t.Cleanup(session.Close)
	require.NoError(t, session.Login("secret"))
	testutil.Eventually(t, time.Second, func() bool {
		return session.State() == services.SessionExpired
	})

	handler := NewSessionHandler(session, logger.NewDiscardLogger())
	router := gin.New()
	router.Use(handler.Touch())
	router.GET("/api/v1/session", handler.Get)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/session", nil))
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"state":"expired","privileged":false}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/session", nil))
	assert.JSONEq(t, `{"state":"anonymous","privileged":false}`, w.Body.String())
}

func TestHistoryRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		method         string
		path           string
		setupMock      func(*MockDashboard)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "List",
			method: "GET",
			path:   "/api/v1/history",
			setupMock: func(m *MockDashboard) {
				m.On("History").Return([]models.HistoryEntry{{ID: 5, Date: "10:00", Mode: validator.ModeASN, Input: "AS1"}})
			},
			expectedStatus: 200,
			expectedBody:   `[{"id":5,"date":"10:00","mode":"ASN","input":"AS1"}]`,
		},
		{
			name:   "Restore Found",
			method: "POST",
			path:   "/api/v1/history/5/restore",
			setupMock: func(m *MockDashboard) {
				m.On("Restore", int64(5)).Return(services.DisplayState{Mode: validator.ModeASN, Input: "AS1", Results: []models.ScanResult{}}, nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"mode":"ASN","input":"AS1","results":[],"loading":false,"progress":{"done":0,"total":0}}`,
		},
		{
			name:   "Restore Missing",
			method: "POST",
			path:   "/api/v1/history/6/restore",
			setupMock: func(m *MockDashboard) {
				m.On("Restore", int64(6)).Return(services.DisplayState{}, apperrors.ErrHistoryNotFound)
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"history entry not found"}`,
		},
		{
			name:           "Restore Bad ID",
			method:         "POST",
			path:           "/api/v1/history/abc/restore",
			setupMock:      func(m *MockDashboard) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid history id"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDashboard := new(MockDashboard)
			tt.setupMock(mockDashboard)

			handler := NewHistoryHandler(mockDashboard, logger.NewDiscardLogger())
			router := gin.New()
			router.GET("/api/v1/history", handler.List)
			router.DELETE("/api/v1/history", handler.Clear)
			router.POST("/api/v1/history/:id/restore", handler.Restore)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockDashboard.AssertExpectations(t)
		})
	}
}

func TestClearHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockDashboard := new(MockDashboard)
	mockDashboard.On("ClearHistory").Return(nil)

	handler := NewHistoryHandler(mockDashboard, logger.NewDiscardLogger())
	router := gin.New()
	router.DELETE("/api/v1/history", handler.Clear)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/history", nil))

	assert.Equal(t, 204, w.Code)
	mockDashboard.AssertExpectations(t)
}
