package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub, role string) string {
    t.Helper()
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub":  sub,
        "role": role,
        "exp":  time.Now().Add(time.Hour).Unix(),
    })
    signed, err := tok.SignedString([]byte(secret))
    require.NoError(t, err)
    return signed
}

func callProtected(t *testing.T, mws []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    h := func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{
            "user_id": c.Get("user_id"),
            "role":    c.Get("role"),
        })
    }
    for i := len(mws) - 1; i >= 0; i-- {
        h = mws[i](h)
    }
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    require.NoError(t, h(e.NewContext(req, rec)))
    return rec
}

func TestJWTAuth(t *testing.T) {
    mws := []echo.MiddlewareFunc{JWTAuth(testSecret)}

    rec := callProtected(t, mws, "Bearer "+signToken(t, testSecret, "cust-1", "USER"))
    require.Equal(t, http.StatusOK, rec.Code)
    require.Contains(t, rec.Body.String(), "cust-1")

    rec = callProtected(t, mws, "")
    require.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = callProtected(t, mws, "Bearer not-a-token")
    require.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = callProtected(t, mws, "Bearer "+signToken(t, "wrong-secret", "cust-1", "USER"))
    require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
    mws := []echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("PROVIDER")}

    rec := callProtected(t, mws, "Bearer "+signToken(t, testSecret, "7", "PROVIDER"))
    require.Equal(t, http.StatusOK, rec.Code)

    rec = callProtected(t, mws, "Bearer "+signToken(t, testSecret, "cust-1", "USER"))
    require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
    e := echo.New()
    h := RequireRole("USER")(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec := httptest.NewRecorder()
    require.NoError(t, h(e.NewContext(req, rec)))
    require.Equal(t, http.StatusForbidden, rec.Code)
}
