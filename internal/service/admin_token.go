package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAdminTokenInvalid 管理端令牌无效
var ErrAdminTokenInvalid = errors.New("admin token invalid")

// AdminClaims 管理端 JWT 载荷
type AdminClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// AdminTokenService 管理端令牌签发与校验
type AdminTokenService struct {
	secret []byte
	expire time.Duration
	now    func() time.Time
}

// NewAdminTokenService 创建管理端令牌服务
func NewAdminTokenService(secret string, expireHours int) *AdminTokenService {
	expire := time.Duration(expireHours) * time.Hour
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	return &AdminTokenService{
		secret: []byte(secret),
		expire: expire,
		now:    time.Now,
	}
}

// GenerateToken 签发管理端令牌
func (s *AdminTokenService) GenerateToken(operator string) (string, time.Time, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return "", time.Time{}, errors.New("operator is empty")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	now := s.now()
	expiresAt := now.Add(s.expire)
	claims := AdminClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken 解析并校验管理端令牌
func (s *AdminTokenService) ParseToken(tokenString string) (*AdminClaims, error) {
	if len(s.secret) == 0 {
		return nil, ErrAdminTokenInvalid
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	claims := &AdminClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid || strings.TrimSpace(claims.Operator) == "" {
		return nil, ErrAdminTokenInvalid
	}
	return claims, nil
}
