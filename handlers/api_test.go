package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"expense-api/config"
	"expense-api/handlers"
	"expense-api/middleware"
	"expense-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAPI wires a full router against a fresh in-memory database,
// mirroring main.go without CORS and rate limiting.
func setupAPI(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)

	db, err := config.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, config.RunMigrations(db))

	wsHandler := handlers.NewWSHandler()

	router := gin.New()
	api := router.Group("/api")
	routes.SetupAuthRoutes(api, db)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware())
	routes.SetupExpenseRoutes(protected, db, wsHandler)
	routes.SetupCategoryRoutes(protected, db)
	routes.SetupImportRoutes(protected, db, wsHandler)
	routes.SetupUserRoutes(protected, db)

	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// registerUser registers a fresh user and returns their token.
func registerUser(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/auth/register", "", gin.H{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := setupAPI(t)

	w := doJSON(t, router, "POST", "/api/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.User.ID)
	assert.Equal(t, "alice@example.com", created.User.Email)
	assert.NotEmpty(t, created.Token)

	w = doJSON(t, router, "POST", "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDuplicateRegistrationIs409(t *testing.T) {
	router, db := setupAPI(t)

	registerUser(t, router, "bob@example.com")

	w := doJSON(t, router, "POST", "/api/auth/register", "", gin.H{
		"email":    "bob@example.com",
		"password": "differentpass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, "bob@example.com").Scan(&count))
	assert.Equal(t, 1, count, "duplicate registration must not create a second row")
}

// Concurrent registrations for one email: exactly one wins, the loser
// gets 409 from the UNIQUE constraint rather than 500.
func TestConcurrentDuplicateRegistration(t *testing.T) {
	router, db := setupAPI(t)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := doJSON(t, router, "POST", "/api/auth/register", "", gin.H{
				"email":    "dup@example.com",
				"password": "password123",
			})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	sort.Ints(codes)
	assert.Equal(t, []int{http.StatusCreated, http.StatusConflict}, codes)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := setupAPI(t)

	w := doJSON(t, router, "POST", "/api/auth/register", "", gin.H{
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/auth/register", "", gin.H{
		"email":    "ok@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	router, _ := setupAPI(t)
	registerUser(t, router, "carol@example.com")

	w := doJSON(t, router, "POST", "/api/auth/login", "", gin.H{
		"email":    "carol@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListCategories(t *testing.T) {
	router, _ := setupAPI(t)
	token := registerUser(t, router, "dave@example.com")

	w := doJSON(t, router, "GET", "/api/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var categories []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &categories))
	assert.Len(t, categories, 9)
	assert.Equal(t, "Food", categories[0].Name)
	assert.NotEmpty(t, categories[0].Icon)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := setupAPI(t)

	w := doJSON(t, router, "GET", "/api/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/expenses", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
