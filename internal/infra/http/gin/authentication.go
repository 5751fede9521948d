package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carshare/internal/app/auth"
)

const (
	headerUserID    = "X-User-ID"
	headerUserRoles = "X-User-Roles"
	headerUserTier  = "X-User-Tier"
)

// Claims are issued by the external identity provider.
type Claims struct {
	Roles []string `json:"roles"`
	Tier  string   `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the caller from a bearer token, or from X-User-*
// headers when DevHeaders is on. Requests without credentials continue
// anonymously; role checks happen on the buses.
type AuthMiddleware struct {
	Secret     []byte
	Issuer     string
	DevHeaders bool
	Logger     *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		p, err := m.verify(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.DebugContext(c.Request.Context(), "token validation failed", slog.Any("err", err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "invalid bearer token", Code: "Unauthenticated"})
			return
		}
		setPrincipal(c, p)
		c.Next()
		return
	}
	if m.DevHeaders {
		if id := strings.TrimSpace(c.GetHeader(headerUserID)); id != "" {
			setPrincipal(c, auth.Principal{
				UserID: id,
				Roles:  auth.ParseRoles(strings.Split(c.GetHeader(headerUserRoles), ",")),
				Tier:   strings.TrimSpace(c.GetHeader(headerUserTier)),
			})
		}
	}
	c.Next()
}

func (m AuthMiddleware) verify(raw string) (auth.Principal, error) {
	if len(m.Secret) == 0 {
		return auth.Principal{}, jwt.ErrTokenUnverifiable
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if m.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.Issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return m.Secret, nil }, opts...); err != nil {
		return auth.Principal{}, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return auth.Principal{}, jwt.ErrTokenInvalidSubject
	}
	return auth.Principal{
		UserID: claims.Subject,
		Roles:  auth.ParseRoles(claims.Roles),
		Tier:   claims.Tier,
	}, nil
}

func setPrincipal(c *gin.Context, p auth.Principal) {
	c.Request = c.Request.WithContext(auth.ContextWithPrincipal(c.Request.Context(), p))
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	return auth.FromContext(c.Request.Context())
}

// requirePrincipal writes 401 when the request is anonymous.
func requirePrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		writeError(c, nil, auth.ErrUnauthenticated)
		return auth.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
