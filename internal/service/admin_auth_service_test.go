package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"ecfresh/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminAuthService_Login(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryAdmins()
	svc := NewAdminAuthService(repo, "secret")
	require.NoError(t, svc.CreateAdmin(ctx, "admin@ecfresh.in", "correct horse"))

	token, err := svc.Login(ctx, "admin@ecfresh.in", "correct horse")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "admin@ecfresh.in", claims["email"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(AdminTokenTTL), exp.Time, 5*time.Second)

	_, err = svc.Login(ctx, "admin@ecfresh.in", "wrong")
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = svc.Login(ctx, "nobody@ecfresh.in", "correct horse")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestAdminAuthService_CreateAdmin(t *testing.T) {
	ctx := context.Background()
	svc := NewAdminAuthService(repository.NewMemoryAdmins(), "secret")

	assertStatus(t, svc.CreateAdmin(ctx, "", "x"), http.StatusBadRequest)
	assertStatus(t, svc.CreateAdmin(ctx, "a@ecfresh.in", "short"), http.StatusBadRequest)
	require.NoError(t, svc.CreateAdmin(ctx, "a@ecfresh.in", "long enough"))
	assertStatus(t, svc.CreateAdmin(ctx, "a@ecfresh.in", "long enough"), http.StatusConflict)
}
