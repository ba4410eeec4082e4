package cookie

import (
	"net/http"
	"time"

	"storefront-checkout/internal/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccessTokenCookieName = "access_token"
	CartSessionCookieName = "cart_session"
	CartSessionHeader     = "X-Session-ID"
)

func GetAccessToken(c *gin.Context) string {
	token, _ := c.Cookie(AccessTokenCookieName)
	return token
}

// GetCartSession reads the guest cart session from the header first, then the cookie.
func GetCartSession(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(CartSessionHeader)
	if raw == "" {
		raw, _ = c.Cookie(CartSessionCookieName)
	}
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func SetCartSession(c *gin.Context, cfg config.CookieConfig, sessionID uuid.UUID, ttl time.Duration) {
	c.SetSameSite(getSameSite(cfg.SameSite))
	c.SetCookie(
		CartSessionCookieName,
		sessionID.String(),
		int(ttl.Seconds()),
		"/",
		cfg.Domain,
		cfg.Secure,
		true, // HttpOnly
	)
}

func ClearCartSession(c *gin.Context, cfg config.CookieConfig) {
	c.SetSameSite(getSameSite(cfg.SameSite))
	c.SetCookie(CartSessionCookieName, "", -1, "/", cfg.Domain, cfg.Secure, true)
}

func getSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "Strict":
		return http.SameSiteStrictMode
	case "Lax":
		return http.SameSiteLaxMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
