// Package stripe is the marketplace's only bridge to the payment provider: hosted
// checkout sessions for orders and seller plans, plus webhook signature checks.
package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/bazar-market/bazar-backend/pkg/config"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// keyPrefixes lists the secret and restricted key prefixes accepted per environment.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

type Client struct {
	environment   string
	signingSecret string
}

// NewClient validates the Stripe settings and installs the API key for the
// package-level resource clients. Every configuration problem is reported at once.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)

	var errs error
	if _, ok := keyPrefixes[env]; !ok {
		errs = multierr.Append(errs, fmt.Errorf("stripe env %q is not one of %q, %q", env, testEnv, liveEnv))
	}
	if apiKey == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", config.EnvStripeAPIKey))
	} else if err := checkKeyMatchesEnv(env, apiKey); err != nil {
		errs = multierr.Append(errs, err)
	}
	if secret == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", config.EnvStripeSecret))
	}
	if errs != nil {
		return nil, fmt.Errorf("stripe config: %w", errs)
	}

	stripe.Key = apiKey
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client ready")
	}
	return &Client{environment: env, signingSecret: secret}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret is the webhook endpoint secret used by ConstructEvent.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func checkKeyMatchesEnv(env, key string) error {
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil
	}
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return nil
		}
	}
	return fmt.Errorf("stripe env %q needs a key starting with %s", env, strings.Join(prefixes, " or "))
}
