package services

import (
	"errors"
	"fmt"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/utils"
	"github.com/sirupsen/logrus"
)

// ErrInvalidSession is returned for missing, expired or forged sessions
var ErrInvalidSession = errors.New("session is not valid")

// SessionValidator resolves a session cookie to the principal behind it
type SessionValidator interface {
	ValidateSession(cookie string) (*access.Principal, error)
}

var (
	authClient *authorizer.AuthorizerClient
	authOnce   sync.Once
	authErr    error
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer creates the Authorizer client once. Later calls return the
// outcome of the first.
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	authOnce.Do(func() {
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			authErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		logrus.WithFields(logrus.Fields{
			"authorizerURL": cfg.AuthzURL,
			"clientID":      cfg.AuthzClientID,
			"redirectURL":   redirectURL,
		}).Info("initializing authorizer")

		client, err := authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			authErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
		authClient = client
	})

	return authErr
}

// AuthorizerValidator validates sessions against the Authorizer service.
// Roles are read from the session; access decisions happen later.
type AuthorizerValidator struct {
	Config *config.Config
	// Protocol and Host form the redirect URL of the lazily created client
	Protocol string
	Host     string
}

var _ SessionValidator = (*AuthorizerValidator)(nil)

func (v *AuthorizerValidator) ValidateSession(cookie string) (*access.Principal, error) {
	if err := InitAuthorizer(v.Config, v.Protocol, v.Host); err != nil {
		return nil, err
	}
	if authClient == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	res, err := authClient.ValidateSession(&authorizer.ValidateSessionInput{Cookie: cookie})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if res == nil || !res.IsValid || res.User == nil {
		return nil, ErrInvalidSession
	}

	roles := make([]string, 0, len(res.User.Roles))
	for _, r := range res.User.Roles {
		if r != nil {
			roles = append(roles, *r)
		}
	}
	return access.NewPrincipal(res.User.ID, "", roles), nil
}
