package managers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/team-ddrawry/ddrawry-server/internal/config"
	"github.com/team-ddrawry/ddrawry-server/internal/schemas"
	"github.com/team-ddrawry/ddrawry-server/internal/utils"
)

const (
	// TokenTypeAccess marks short-lived tokens accepted by the auth middleware.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks long-lived tokens accepted only by the refresh endpoint.
	TokenTypeRefresh = "refresh"

	// AccessTokenCookie is the cookie carrying the access token.
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie is the cookie carrying the refresh token.
	RefreshTokenCookie = "refresh_token"

	tokenIssuer  = "ddrawry"
	bearerPrefix = "Bearer "
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	// Callers can recover from it by refreshing the session.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for malformed tokens, bad signatures,
	// missing claims and type mismatches.
	ErrTokenInvalid = errors.New("token invalid")
)

// SessionMgr issues and validates the locally-signed session token pair.
// Tokens are stateless; there is no server-side session storage or denylist,
// so revocation only takes effect at natural expiry.
type SessionMgr interface {
	Issue(userId uuid.UUID) (*schemas.TokenPairDTO, error)
	Verify(tokenString, tokenType string) (uuid.UUID, error)
	Refresh(refreshToken string) (string, error)
	AuthMiddleware() gin.HandlerFunc
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// SessionManager signs token pairs with a shared HMAC secret. Access and
// refresh tokens carry a type claim so one is never accepted where the other
// is expected.
type SessionManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type sessionClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewSessionManager creates a SessionManager from the injected session configuration.
func NewSessionManager(cfg config.Session) SessionMgr {
	return &SessionManager{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

// Issue signs a fresh access/refresh token pair bound to the given user id.
func (sm *SessionManager) Issue(userId uuid.UUID) (*schemas.TokenPairDTO, error) {
	accessToken, err := sm.sign(userId, TokenTypeAccess, sm.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := sm.sign(userId, TokenTypeRefresh, sm.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &schemas.TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Verify parses the token, checks signature, expiry and type, and returns the
// embedded user id. Expired-but-well-formed tokens fail with ErrTokenExpired,
// everything else with ErrTokenInvalid.
func (sm *SessionManager) Verify(tokenString, tokenType string) (uuid.UUID, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return sm.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrTokenExpired
		}
		return uuid.Nil, ErrTokenInvalid
	}

	if !token.Valid || claims.TokenType != tokenType {
		return uuid.Nil, ErrTokenInvalid
	}

	userId, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}

	return userId, nil
}

// Refresh verifies the refresh token and mints a new access token for the
// same user. The refresh token itself is not rotated.
func (sm *SessionManager) Refresh(refreshToken string) (string, error) {
	userId, err := sm.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	return sm.sign(userId, TokenTypeAccess, sm.accessTTL)
}

// AuthMiddleware extracts the access token from the access_token cookie or
// the Authorization header, validates it and stores the user id in the
// request context.
func (sm *SessionManager) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AccessTokenCookie)
		if err != nil || tokenString == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, bearerPrefix) {
				tokenString = header[len(bearerPrefix):]
			}
		}

		if tokenString == "" {
			abortWithSessionError(c, schemas.Unauthorized, errors.New("no session token provided"))
			return
		}

		userId, err := sm.Verify(tokenString, TokenTypeAccess)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				abortWithSessionError(c, schemas.TokenExpired, err)
				return
			}
			abortWithSessionError(c, schemas.InvalidToken, err)
			return
		}

		c.Set(utils.UserIdKey, userId)
		c.Next()
	}
}

func (sm *SessionManager) AccessTTL() time.Duration {
	return sm.accessTTL
}

func (sm *SessionManager) RefreshTTL() time.Duration {
	return sm.refreshTTL
}

func (sm *SessionManager) sign(userId uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userId.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sm.secret)
}

func abortWithSessionError(c *gin.Context, customErr *schemas.CustomError, err error) {
	utils.LogMessageWithFields(c, "error", "Rejecting request: "+err.Error())
	c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *customErr})
}
