package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"property-governance-backend/governance"
)

const userKey = "governance_user"

// Claims is the bearer token payload. Subject carries the numeric user id.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	log    logrus.FieldLogger
}

func NewAuthenticator(secret string, log logrus.FieldLogger) *Authenticator {
	return &Authenticator{secret: []byte(secret), log: log}
}

// Middleware rejects requests without a valid token and stores the caller
// for CurrentUser.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := a.authenticate(c.GetHeader("Authorization"))
		if err != nil {
			a.log.WithField("request_id", c.GetString(requestIDKey)).WithError(err).Debug("authentication failed")
			abortWithError(c, a.log, governance.ErrUnauthorized)
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func (a *Authenticator) authenticate(header string) (*governance.User, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, governance.ErrUnauthorized
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, governance.ErrUnauthorized
	}
	return &governance.User{ID: id, Roles: claims.Roles}, nil
}

// CurrentUser returns the authenticated caller, nil when there is none.
func CurrentUser(c *gin.Context) *governance.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*governance.User); ok {
			return u
		}
	}
	return nil
}

// SignToken issues a token for u. The platform's identity service issues
// real tokens; this is used by tests and local tooling.
func SignToken(secret string, u *governance.User) (string, error) {
	claims := Claims{
		Roles: u.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatUint(u.ID, 10),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
