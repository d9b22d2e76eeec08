package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const (
	customerKey ctxKey = iota
	adminKey
)

// Customer is the identity carried by a verified customer token.
type Customer struct {
	ID    string
	Email string
}

func WithCustomer(ctx context.Context, c Customer) context.Context {
	return context.WithValue(ctx, customerKey, c)
}

// CustomerFrom returns the authenticated customer, if any.
func CustomerFrom(ctx context.Context) (Customer, bool) {
	c, ok := ctx.Value(customerKey).(Customer)
	return c, ok && c.ID != ""
}

// AdminIDFrom returns the admin id set by AdminAuthMiddleware.
func AdminIDFrom(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(adminKey).(int)
	return id, ok
}

// AdminAuthMiddleware accepts HS256 tokens issued by the admin login.
func AdminAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(r, secret)
			if err != nil {
				unauthorized(w, "Unauthorized")
				return
			}
			raw, ok := claims["admin_id"].(float64)
			if !ok {
				unauthorized(w, "Unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), adminKey, int(raw))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerAuthMiddleware verifies tokens issued by the hosted auth provider.
// When required is false, requests without a token pass through as guests,
// but a token that is present must still be valid.
func CustomerAuthMiddleware(secret string, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" && !required {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := parseBearer(r, secret)
			if err != nil {
				unauthorized(w, "Please sign in to continue")
				return
			}
			sub, _ := claims.GetSubject()
			if sub == "" {
				unauthorized(w, "Please sign in to continue")
				return
			}
			email, _ := claims["email"].(string)
			ctx := WithCustomer(r.Context(), Customer{ID: sub, Email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(r *http.Request, secret string) (jwt.MapClaims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errors.New("missing bearer token")
	}
	if secret == "" {
		return nil, errors.New("token verification not configured")
	}
	token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
