package container

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/affiliateboard/backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		BaseURL:     "https://board.example.com",
		Database:    config.DatabaseConfig{URL: "sqlite://:memory:"},
		Admin: config.AdminConfig{
			Password:   "hunter22",
			JWTSecret:  "0123456789abcdef0123456789abcdef",
			Issuer:     "affiliateboard",
			Audience:   "affiliateboard-admin",
			CookieName: "admin_token",
		},
		CronSecret: "cron-secret",
	}
}

func TestBuildWithoutOptionalIntegrations(t *testing.T) {
	c, err := Build(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Cleanup(context.Background()) })

	assert.NoError(t, c.Validate())
	assert.NotNil(t, c.DB())
	assert.NotNil(t, c.Store())
	assert.NotNil(t, c.Jobs())

	deps := c.HandlerDeps(nil)
	assert.Nil(t, deps.Logos)
	assert.Nil(t, deps.Notifier)
	assert.Nil(t, deps.Payments)
	assert.NotNil(t, deps.Auth)

	opts := c.HandlerOptions()
	assert.Equal(t, "cron-secret", opts.CronSecret)
	assert.Equal(t, "admin_token", opts.CookieName)
}

func TestBuildWithWebhookSecretOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Stripe.WebhookSecret = "whsec_test"

	c, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Cleanup(context.Background()) })

	assert.NotNil(t, c.HandlerDeps(nil).Payments)
}

func TestBuildCoreSkipsIntegrations(t *testing.T) {
	c, err := BuildCore(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Cleanup(context.Background()) })

	assert.NotNil(t, c.Jobs())
	assert.Nil(t, c.Store())
	assert.Nil(t, c.Auth())
}

func TestCleanupRunsInReverseOrder(t *testing.T) {
	c := New(testConfig())
	var order []int
	for i := 0; i < 3; i++ {
		c.OnCleanup(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	require.NoError(t, c.Cleanup(context.Background()))
	assert.Equal(t, []int{2, 1, 0}, order)

	// A second call has nothing left to run.
	require.NoError(t, c.Cleanup(context.Background()))
	assert.Len(t, order, 3)
}

func TestCleanupJoinsErrors(t *testing.T) {
	c := New(testConfig())
	first := errors.New("first")
	ran := false
	c.OnCleanup(func(context.Context) error { ran = true; return nil })
	c.OnCleanup(func(context.Context) error { return first })

	err := c.Cleanup(context.Background())
	assert.ErrorIs(t, err, first)
	assert.True(t, ran)
}

func TestValidateListsMissingDependencies(t *testing.T) {
	err := New(testConfig()).Validate()

	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, initErr.MissingDeps, "database")
	assert.Contains(t, initErr.MissingDeps, "admin auth")
	assert.Contains(t, err.Error(), "missing required dependencies")
}
