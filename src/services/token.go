package services

import (
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/lestrrat-go/jwx/jwt"
)

// TokenService issues and checks the HS256 session tokens handed out at
// login. The subject claim carries the user id.
type TokenService struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		auth: jwtauth.New("HS256", []byte(secret), nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *TokenService) Issue(userID int64) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)

	_, tokenString, err := s.auth.Encode(map[string]interface{}{
		jwt.SubjectKey:    strconv.FormatInt(userID, 10),
		jwt.IssuedAtKey:   issuedAt,
		jwt.ExpirationKey: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Authenticate verifies the token signature and expiry and returns the user
// id it was issued for.
func (s *TokenService) Authenticate(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, ErrUnauthorized
	}
	token, err := s.auth.Decode(tokenString)
	if err != nil || token == nil {
		return 0, &Error{Kind: KindUnauthorized, Message: ErrUnauthorized.Message, Err: err}
	}
	if err := jwt.Validate(token, jwt.WithClock(jwt.ClockFunc(s.now))); err != nil {
		return 0, &Error{Kind: KindUnauthorized, Message: ErrUnauthorized.Message, Err: err}
	}
	userID, err := strconv.ParseInt(token.Subject(), 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrUnauthorized
	}
	return userID, nil
}
