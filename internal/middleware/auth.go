package middleware

import (
	"log"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// JWT validates Auth0-issued tokens. The net/http middleware is wrapped
// into a gin handler with gin-adapter.
func JWT(domain, audience string) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
	)
	if err != nil {
		return nil, err
	}

	mw := jwtmiddleware.New(jwtValidator.ValidateToken)
	return adapter.Wrap(mw.CheckJWT), nil
}

// GetAuth0ID extracts the user ID (sub claim) from the JWT token in the Gin context
func GetAuth0ID(c *gin.Context) (string, bool) {
	// The JWT middleware stores the validated token in the request context
	// under the key "user" by default
	claims, exists := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !exists {
		log.Printf("No user claims found in context")
		return "", false
	}

	return claims.RegisteredClaims.Subject, true
}
