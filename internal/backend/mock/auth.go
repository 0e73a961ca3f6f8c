package mock

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxUserID = "user_id"

type loginRequest struct {
	TelegramInitData string `json:"telegram_init_data"`
	Username         string `json:"username"`
}

// IssueToken выдаёт подписанный HS256 токен для пользователя.
func (s *Server) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Server) parseToken(raw string) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid login payload")
		return
	}
	userID := strings.TrimSpace(req.Username)
	if userID == "" {
		userID = strings.TrimSpace(req.TelegramInitData)
	}
	if userID == "" {
		fail(c, http.StatusBadRequest, "Credentials are required")
		return
	}

	token, err := s.IssueToken(userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	ok(c, http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			fail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := s.parseToken(parts[1])
		if err != nil {
			fail(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}
