// internal/middleware/apikey.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paytently/payment-gateway/internal/models"
)

const APIKeyHeader = "X-API-Key"

const principalContextKey = "principal"

// ParseAPIKeys parses "key:merchantID:merchantName" entries separated by
// commas into a lookup table.
func ParseAPIKeys(raw string) (map[string]models.APIKeyPrincipal, error) {
	keys := make(map[string]models.APIKeyPrincipal)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed API key entry %q", entry)
		}
		keys[parts[0]] = models.APIKeyPrincipal{
			MerchantID:   parts[1],
			MerchantName: parts[2],
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys configured")
	}
	return keys, nil
}

// APIKeyAuth resolves the X-API-Key header to a merchant principal and
// rejects the request before any payment logic runs.
func APIKeyAuth(keys map[string]models.APIKeyPrincipal) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key was not provided"})
			return
		}

		principal, ok := keys[key]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated merchant set by APIKeyAuth.
func PrincipalFrom(c *gin.Context) (models.APIKeyPrincipal, bool) {
	value, ok := c.Get(principalContextKey)
	if !ok {
		return models.APIKeyPrincipal{}, false
	}
	principal, ok := value.(models.APIKeyPrincipal)
	return principal, ok
}
