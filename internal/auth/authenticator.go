// Package auth selects and applies the credentials used against the
// Prometheus HTTP API.
package auth

import (
	"fmt"
	"net/http"

	"github.com/IBM/go-sdk-core/v5/core"
	"go.uber.org/zap"
)

// Authenticator handles Prometheus authentication
type Authenticator struct {
	authenticator core.Authenticator
	logger        *zap.Logger
}

// New picks an authenticator from the supplied credentials. Basic auth
// wins when both username and password are set, then a bearer token;
// with neither, requests are sent unauthenticated.
func New(username, password, token string, logger *zap.Logger) (*Authenticator, error) {
	var (
		authenticator core.Authenticator
		err           error
	)

	switch {
	case username != "" && password != "":
		authenticator, err = core.NewBasicAuthenticator(username, password)
	case username != "" || password != "":
		return nil, fmt.Errorf("username and password must be provided together")
	case token != "":
		authenticator, err = core.NewBearerTokenAuthenticator(token)
	default:
		authenticator, err = core.NewNoAuthAuthenticator()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate authenticator: %w", err)
	}

	logger.Debug("Prometheus authenticator initialized",
		zap.String("type", authenticator.AuthenticationType()),
	)

	return &Authenticator{
		authenticator: authenticator,
		logger:        logger,
	}, nil
}

// Authenticate adds authentication to an HTTP request
func (a *Authenticator) Authenticate(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}

	if err := a.authenticator.Authenticate(req); err != nil {
		a.logger.Error("Authentication failed", zap.Error(err))
		return fmt.Errorf("authentication failed: %w", err)
	}

	return nil
}
