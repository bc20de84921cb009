package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"expense-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": GetUserID(c)})
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMissingHeaderIs401(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter()

	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(r, "Basic abc").Code)
}

func TestValidTokenPasses(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter()

	token, err := utils.GenerateAccessToken(7, "u@example.com")
	require.NoError(t, err)

	w := doRequest(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":7`)
}

func TestWrongSecretIs403(t *testing.T) {
	t.Setenv("JWT_SECRET", "other-secret")
	token, err := utils.GenerateAccessToken(7, "u@example.com")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter()

	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer "+token).Code)
}

func TestExpiredTokenIs403(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter()

	claims := utils.Claims{
		UserID: 7,
		Email:  "u@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer "+token).Code)
}

func TestMalformedTokenIs403(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := authTestRouter()

	assert.Equal(t, http.StatusForbidden, doRequest(r, "Bearer garbage").Code)
}
