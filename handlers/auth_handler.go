package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/swiss-tournament/middleware"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/Dosada05/swiss-tournament/utils"
	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = 12 * time.Hour

// AuthHandler выдаёт токен организатора по паролю (bcrypt-хэш из конфигурации).
type AuthHandler struct {
	passwordHash string
	jwtSecret    []byte
	now          func() time.Time
}

func NewAuthHandler(passwordHash, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		passwordHash: passwordHash,
		jwtSecret:    []byte(jwtSecret),
		now:          time.Now,
	}
}

func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Password == "" {
		badRequestResponse(w, r, errors.New("password is required"))
		return
	}

	if h.passwordHash == "" || !utils.CheckPasswordHash(input.Password, h.passwordHash) {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidCredentials)
		return
	}

	subject := input.Name
	if subject == "" {
		subject = middleware.RoleOrganizer
	}
	now := h.now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": middleware.RoleOrganizer,
		"exp":  now.Add(tokenTTL).Unix(),
		"iat":  now.Unix(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": tokenString, "expires_at": now.Add(tokenTTL)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
