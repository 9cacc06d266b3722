package auth

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// TokenData describes the caller once the bearer token has been verified.
type TokenData struct {
	UserID                   string
	IsServer                 bool
	IsHealthcareProfessional bool
}

// ClientInterface interface that we will implement and mock
type ClientInterface interface {
	Authenticate(req *http.Request) *TokenData
}

// Client holds the state of the Auth Client
type Client struct {
	tokenValidator *validator.Validator
}

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope                    string `json:"scope"`
	IsServer                 bool   `json:"isServer"`
	IsHealthcareProfessional bool   `json:"https://vizuhealth.com/isHealthcareProfessional"`
}

// Nothing else to validate, authorization is decided per route
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

func setupAuth0() *validator.Validator {
	//target audience is used to verify the token was issued for a specific domain or url.
	//by default it will be empty but we would (in the future) use this to authorize or deny access to some urls
	targetAudience := []string{}
	if value, present := os.LookupEnv("AUTH0_AUDIENCE"); present {
		targetAudience = []string{value}
	}
	issuerURL, err := url.Parse("https://" + os.Getenv("AUTH0_DOMAIN") + "/")
	if err != nil {
		log.Fatalf("Failed to parse the issuer url: %v", err)
	}
	keyProvider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		keyProvider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		targetAudience,
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator")
	}

	return jwtValidator
}

// NewClient creates a new Auth Client
func NewClient() (*Client, error) {
	return &Client{
		tokenValidator: setupAuth0(),
	}, nil
}

// Authenticate the incoming request using the authorization Bearer token
func (client *Client) Authenticate(req *http.Request) *TokenData {
	var parsedToken *validator.ValidatedClaims
	if rawToken, err := jwtmiddleware.AuthHeaderTokenExtractor(req); err != nil || rawToken == "" {
		log.Print("Error decoding bearer token")
		return nil
	} else if t, err := client.tokenValidator.ValidateToken(req.Context(), rawToken); err != nil {
		log.Print("Error decoding bearer token")
		return nil
	} else {
		parsedToken = t.(*validator.ValidatedClaims)
	}

	subject := parsedToken.RegisteredClaims.Subject
	// auth0 subjects look like "auth0|<uid>"
	if parts := strings.Split(subject, "|"); len(parts) > 1 {
		subject = parts[1]
	}

	claims, ok := parsedToken.CustomClaims.(*CustomClaims)
	if !ok {
		return &TokenData{UserID: subject}
	}
	return &TokenData{
		UserID:                   subject,
		IsServer:                 claims.IsServer,
		IsHealthcareProfessional: claims.IsHealthcareProfessional,
	}
}
