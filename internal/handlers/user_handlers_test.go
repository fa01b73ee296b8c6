package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/chatforge/chatforge-golang/internal/chat"
	"github.com/chatforge/chatforge-golang/internal/models"
)

func userRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := &Handlers{Users: &chat.UserStore{DB: db}}
	router.POST("/v1/auth/register", h.Register)
	router.POST("/v1/auth/login", h.Login)
	router.GET("/v1/profile/me", func(c *gin.Context) {
		c.Set("userID", "user-1")
		h.GetMyProfile(c)
	})
	return router, mock
}

func userRow(email, hash string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "hashed_password", "name", "image", "is_active",
		"subscription", "api_usage", "api_limit", "created_at", "updated_at",
	}).AddRow("user-1", email, hash, "Alice", nil, active, models.TierFree, 5, 100, now, now)
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterCreatesFreeTierUser(t *testing.T) {
	router, mock := userRouter(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(
			sqlmock.AnyArg(), "alice@example.com", sqlmock.AnyArg(), "Alice", nil,
			true, models.TierFree, 0, 100, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, router, "/v1/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret-password"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "hashed_password") {
		t.Error("response leaks the password hash")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	router, mock := userRouter(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("Error 1062: Duplicate entry 'alice@example.com' for key 'users.email'"))

	rec := postJSON(t, router, "/v1/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret-password"}`)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	router, _ := userRouter(t)

	rec := postJSON(t, router, "/v1/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"short"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	router, mock := userRouter(t)

	var password models.Password
	if err := password.Set("secret-password"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("alice@example.com").
		WillReturnRows(userRow("alice@example.com", password.Hash, true))

	rec := postJSON(t, router, "/v1/auth/login",
		`{"email":"alice@example.com","password":"secret-password"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token in the response")
	}
	if resp.User.Email != "alice@example.com" {
		t.Errorf("user.email = %q", resp.User.Email)
	}
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	router, mock := userRouter(t)

	var password models.Password
	if err := password.Set("the-real-password"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("alice@example.com").
		WillReturnRows(userRow("alice@example.com", password.Hash, true))

	rec := postJSON(t, router, "/v1/auth/login",
		`{"email":"alice@example.com","password":"a-wrong-guess"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	router, mock := userRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	rec := postJSON(t, router, "/v1/auth/login",
		`{"email":"nobody@example.com","password":"whatever123"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginDeactivatedAccountIsUnauthorized(t *testing.T) {
	router, mock := userRouter(t)

	var password models.Password
	if err := password.Set("secret-password"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("alice@example.com").
		WillReturnRows(userRow("alice@example.com", password.Hash, false))

	rec := postJSON(t, router, "/v1/auth/login",
		`{"email":"alice@example.com","password":"secret-password"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetMyProfileReportsUsage(t *testing.T) {
	router, mock := userRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("user-1").
		WillReturnRows(userRow("alice@example.com", "irrelevant", true))

	req := httptest.NewRequest(http.MethodGet, "/v1/profile/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			APIUsage int `json:"apiUsage"`
			APILimit int `json:"apiLimit"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.APIUsage != 5 || resp.User.APILimit != 100 {
		t.Errorf("usage = %d/%d, want 5/100", resp.User.APIUsage, resp.User.APILimit)
	}
}
