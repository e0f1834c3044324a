package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arzan03/urbanscope/internal/handlers"
	"github.com/arzan03/urbanscope/internal/middleware"
	"github.com/arzan03/urbanscope/internal/models"
	"github.com/arzan03/urbanscope/internal/services"
	"github.com/arzan03/urbanscope/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type harness struct {
	t      *testing.T
	app    *fiber.App
	users  *testutil.UserStore
	props  *testutil.PropertyStore
	media  *testutil.MediaStore
	mailer *testutil.Mailer
	tokens *services.TokenIssuer
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, Options{CORSOrigins: "*", ResetRateLimit: 100})
}

func newHarnessWith(t *testing.T, opts Options) *harness {
	t.Helper()
	log := zap.NewNop()
	h := &harness{
		t:      t,
		users:  testutil.NewUserStore(),
		props:  testutil.NewPropertyStore(),
		media:  &testutil.MediaStore{},
		mailer: testutil.NewMailer(),
		tokens: services.NewTokenIssuer("test-secret", nil),
	}

	auth := services.NewAuthService(h.users, h.tokens, h.mailer, log)
	props := services.NewPropertyService(h.props, h.users, h.media, log)
	favs := services.NewFavoriteService(h.users, h.props, log)
	admin := services.NewAdminService(h.users, log)

	h.app = NewApp(opts, Handlers{
		Gate:     middleware.NewGate(h.tokens, h.users, log),
		Auth:     handlers.NewAuthHandler(auth, false, log),
		Property: handlers.NewPropertyHandler(props, log),
		Favorite: handlers.NewFavoriteHandler(favs, log),
		Admin:    handlers.NewAdminHandler(admin, log),
	}, log)
	return h
}

// account stores a user with the given role and returns it with a session token.
func (h *harness) account(username string, role models.Role) (*models.User, string) {
	h.t.Helper()
	hash, err := services.HashPassword("password123")
	require.NoError(h.t, err)
	u := h.users.Put(&models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  hash,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
	})
	token, err := h.tokens.IssueSession(u.ID)
	require.NoError(h.t, err)
	return u, token
}

func (h *harness) do(method, path, token string, body any) (*http.Response, map[string]any) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(req, token)
}

func (h *harness) send(req *http.Request, token string) (*http.Response, map[string]any) {
	h.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(h.t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func multipartListing(t *testing.T, fields map[string]string, files ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range files {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (h *harness) createListing(token string, files ...string) (*http.Response, map[string]any) {
	h.t.Helper()
	body, ctype := multipartListing(h.t, map[string]string{
		"propertyType":        "House",
		"propertyTransaction": "Sale",
		"title":               "Family home",
		"location":            "Westlands",
		"price":               "12000000",
		"amenities":           `["Gym","CCTV"]`,
	}, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/properties", body)
	req.Header.Set("Content-Type", ctype)
	return h.send(req, token)
}

func TestRegisterLoginProfile(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret1",
		"role":     "admin",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password")

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	resp, body = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token := body["token"].(string)

	resp, body = h.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, body, "password")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	resp, _ = h.send(req, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_BadCredentials(t *testing.T) {
	h := newHarness(t)
	h.account("alice", models.RoleUser)

	resp, body := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", body["error"])
}

func TestLogout_ClearsCookie(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Cookies())
	assert.Equal(t, middleware.TokenCookie, resp.Cookies()[0].Name)
	assert.Empty(t, resp.Cookies()[0].Value)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	h := newHarness(t)
	h.account("alice", models.RoleUser)

	resp, known := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, unknown := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, known, unknown)

	code := h.mailer.LastCode("alice@example.com")
	resp, body := h.do(http.MethodPost, "/api/auth/verify-reset-code", "", map[string]string{
		"email": "alice@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	resetToken := body["resetToken"].(string)

	// a reset token is not a session
	resp, _ = h.do(http.MethodGet, "/api/auth/profile", resetToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = h.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"resetToken": resetToken,
		"password":   "brandnew1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "brandnew1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestForgotPassword_MailFailureMatchesUnknownEmail(t *testing.T) {
	h := newHarness(t)
	h.account("alice", models.RoleUser)
	h.mailer.ResetErr = errors.New("smtp down")

	resp, known := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, unknown := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, known, unknown)
}

func TestVerifyResetCode_Wrong(t *testing.T) {
	h := newHarness(t)
	h.account("alice", models.RoleUser)

	resp, body := h.do(http.MethodPost, "/api/auth/verify-reset-code", "", map[string]string{
		"email": "alice@example.com",
		"code":  "123456",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid or expired reset code", body["error"])
}

func TestResetEndpointsAreRateLimited(t *testing.T) {
	h := newHarnessWith(t, Options{ResetRateLimit: 2})

	status := func() int {
		resp, _ := h.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "x@example.com"})
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusTooManyRequests, status())

	resp, _ := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "x@example.com", "password": "whatever"})
	assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestPropertyLifecycle(t *testing.T) {
	h := newHarness(t)
	_, adminToken := h.account("boss", models.RoleAdmin)
	_, userToken := h.account("alice", models.RoleUser)

	resp, _ := h.createListing(userToken, "a.jpg")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = h.createListing("", "a.jpg")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := h.createListing(adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "At least one image is required", body["error"])

	resp, created := h.createListing(adminToken, "front.jpg", "back.jpg")
	require.Equal(t, http.StatusCreated, resp.StatusCode, created)
	id := created["id"].(string)
	images := created["images"].([]any)
	require.Len(t, images, 2)
	assert.Contains(t, images[0], "front.jpg")
	assert.Contains(t, images[1], "back.jpg")

	resp, body = h.do(http.MethodPut, "/api/properties/"+id, adminToken, map[string]any{"price": 9500000})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, 9500000.0, body["price"])
	assert.Equal(t, "Family home", body["title"])
	assert.Len(t, body["images"], 2)

	resp, body = h.do(http.MethodGet, "/api/properties/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"Gym", "CCTV"}, body["amenities"])

	resp, _ = h.do(http.MethodGet, "/api/properties/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = h.do(http.MethodGet, "/api/properties/"+primitive.NewObjectID().Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/api/properties/"+id, userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = h.do(http.MethodDelete, "/api/properties/"+id, adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, h.media.Deleted, 2)
	assert.Equal(t, 0, h.props.Len())
}

func TestPropertyListFilters(t *testing.T) {
	h := newHarness(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.props.Put(&models.Property{Title: "cheap", Location: "Kilimani", Price: 100, Status: models.StatusActive, PropertyType: models.PropertyApartment, CreatedAt: base})
	h.props.Put(&models.Property{Title: "mid", Location: "Karen", Price: 500, Status: models.StatusActive, PropertyType: models.PropertyHouse, Featured: true, CreatedAt: base.Add(time.Hour)})
	h.props.Put(&models.Property{Title: "dear", Location: "karen hills", Price: 900, Status: models.StatusSold, PropertyType: models.PropertyHouse, CreatedAt: base.Add(2 * time.Hour)})

	list := func(query string) []any {
		req := httptest.NewRequest(http.MethodGet, "/api/properties"+query, nil)
		resp, err := h.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out []any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	assert.Len(t, list(""), 3)
	assert.Len(t, list("?location=KAREN"), 2)
	assert.Len(t, list("?propertyType=House&status=active"), 1)
	assert.Len(t, list("?minPrice=200&maxPrice=900"), 2)
	assert.Len(t, list("?limit=1&offset=1"), 1)
	assert.Len(t, list("/featured"), 1)

	resp, _ := h.do(http.MethodGet, "/api/properties?minPrice=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFavoritesOverHTTP(t *testing.T) {
	h := newHarness(t)
	_, token := h.account("alice", models.RoleUser)
	p := h.props.Put(&models.Property{Title: "flat", Status: models.StatusActive})
	path := "/api/favorites/" + p.ID.Hex()

	resp, _ := h.do(http.MethodGet, "/api/favorites", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := h.do(http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, body["favorites"], 1)

	resp, body = h.do(http.MethodGet, path+"/status", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isFavorite"])

	resp, body = h.do(http.MethodDelete, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["favorites"])

	resp, _ = h.do(http.MethodPost, "/api/favorites/"+primitive.NewObjectID().Hex(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	boss, adminToken := h.account("boss", models.RoleAdmin)
	alice, userToken := h.account("alice", models.RoleUser)
	_, agentToken := h.account("agent007", models.RoleAgent)

	resp, _ := h.do(http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(http.MethodGet, "/api/admin/users?page=1&limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.0, body["total"])
	assert.Equal(t, 2.0, body["totalPages"])
	assert.Len(t, body["users"], 2)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/agents", nil)
	resp, _ = h.send(req, agentToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(http.MethodGet, "/api/admin/"+alice.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])

	resp, body = h.do(http.MethodPut, "/api/admin/"+alice.ID.Hex(), adminToken, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, false, body["isActive"])

	// deactivated accounts lose their session
	resp, _ = h.do(http.MethodGet, "/api/auth/profile", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = h.do(http.MethodDelete, "/api/admin/"+boss.ID.Hex(), adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Cannot delete your own account", body["error"])

	resp, _ = h.do(http.MethodDelete, "/api/admin/"+alice.ID.Hex(), adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(http.MethodGet, "/api/admin/"+alice.ID.Hex(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}
