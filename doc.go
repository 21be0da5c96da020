// Package backend provides the affiliate board API server.

// This package contains no code. The server lives in cmd/server and the API is
// organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/repository: Queries over the models, including the ranking order
// - internal/scoring: The trending score function
// - internal/jobs: Score recompute, tiebreaker rotation and log pruning
// - internal/tracking: Deduplicated view/click counters and traffic logging
// - internal/payments: Stripe checkout and webhook fulfilment
// - internal/urlcheck: Submission URL policy and reachability checks
// - internal/auth: Admin login and session tokens
// - internal/storage: Logo storage (S3)
// - internal/email: Admin notifications (SES)
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (admin gate, rate limiting, caching)
// - internal/container: Dependency construction and shutdown

// See the individual package documentation for detailed API reference.
package backend
