package auth_test

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-tableside/internal/auth"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestExtractTokenFromRequest(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc123")

	token, err := auth.ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	r.Header.Del("Authorization")
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Basic abc123")
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)
}

func TestIdentityFromJWT(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub":  "user_1",
		"name": "Alex",
		"role": "staff",
	})

	identity, err := auth.IdentityFromJWT(raw)
	require.NoError(t, err)
	assert.Equal(t, "user_1", identity.UserID)
	assert.Equal(t, "Alex", identity.DisplayName)
	assert.Equal(t, auth.RoleStaff, identity.Role)
}

func TestIdentityDefaultsToCustomer(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{"sub": "user_2"})

	identity, err := auth.IdentityFromJWT(raw)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCustomer, identity.Role)
}

func TestIdentityRequiresSubject(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{"name": "Nobody"})

	_, err := auth.IdentityFromJWT(raw)
	assert.Error(t, err)
}

func TestCanActAs(t *testing.T) {
	staff := auth.Identity{UserID: "u1", Role: auth.RoleStaff}
	assert.True(t, staff.CanActAs(auth.RoleStaff, auth.RoleExpo))
	assert.False(t, staff.CanActAs(auth.RoleAdmin))

	admin := auth.Identity{UserID: "u2", Role: auth.RoleAdmin}
	assert.True(t, admin.CanActAs(auth.RoleStaff))
	assert.True(t, admin.CanActAs(auth.RoleCustomer))
}
