// Package docs provides Swagger API documentation
package docs

// @tag.name portfolios
// @tag.description Portfolio lifecycle

// @tag.name transactions
// @tag.description Ledger entries with double-entry cash legs

// @tag.name positions
// @tag.description Materialized positions with price enrichment

// @tag.name performance
// @tag.description Daily TWR snapshots and cumulative returns

// @tag.name health
// @tag.description Service health and readiness
