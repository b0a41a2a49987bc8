package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/printa-pos/internal/modules/user"
)

const secret = "test-secret"

type mockUsers struct{ u *user.User }

func (m *mockUsers) CreateUser(context.Context, *user.User) error { return nil }

func (m *mockUsers) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	if m.u != nil && m.u.Email == email {
		return m.u, nil
	}
	return nil, user.ErrNotFound
}

func (m *mockUsers) GetUserByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if m.u != nil && m.u.ID == id {
		return m.u, nil
	}
	return nil, user.ErrNotFound
}

func newUsers(t *testing.T) *mockUsers {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockUsers{u: &user.User{ID: uuid.New(), Email: "cashier@shop.example", PasswordHash: string(hash)}}
}

func TestLogin(t *testing.T) {
	users := newUsers(t)
	svc := NewService(users, secret, time.Hour)

	token, err := svc.Login(context.Background(), " Cashier@Shop.example", "correct horse")
	require.NoError(t, err)

	id, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, users.u.ID, id)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := NewService(newUsers(t), secret, time.Hour)

	_, err := svc.Login(context.Background(), "cashier@shop.example", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@shop.example", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseToken_Rejects(t *testing.T) {
	users := newUsers(t)
	svc := NewService(users, secret, time.Hour).(*service)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.Login(context.Background(), "cashier@shop.example", "correct horse")
	require.NoError(t, err)

	otherKey, err := NewService(users, "other-secret", time.Hour).Login(context.Background(), "cashier@shop.example", "correct horse")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &jwt.StandardClaims{Subject: users.u.ID.String()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	notAUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.StandardClaims{Subject: "admin"}).
		SignedString([]byte(secret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":     expired,
		"other key":   otherKey,
		"alg none":    unsigned,
		"bad subject": notAUser,
		"garbage":     "not.a.token",
	} {
		_, err := ParseToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestMiddleware(t *testing.T) {
	users := newUsers(t)
	token, err := NewService(users, secret, time.Hour).Login(context.Background(), "cashier@shop.example", "correct horse")
	require.NoError(t, err)

	var seen uuid.UUID
	h := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
	assert.Equal(t, users.u.ID, seen)
}

func TestUserID_Absent(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)
}

func TestHandler_Login(t *testing.T) {
	r := newRouter(NewService(newUsers(t), secret, time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"cashier@shop.example","password":"correct horse"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"cashier@shop.example","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r
}
