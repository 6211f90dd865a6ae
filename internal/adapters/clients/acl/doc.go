// Package acl implements the anti-corruption layer between the quote
// service and external quote feeds.
//
// External feeds have their own wire formats, error conventions and
// quirks. This package keeps those at the boundary: adapters translate
// feed DTOs into domain types and feed failures into domain errors, so
// the application layer only ever sees domain vocabulary.
//
// The ZenQuotes adapter (ZenClient) implements ports.QuoteFetcher over
// the instrumented clients.Client, inheriting its retry, circuit breaker
// and tracing behavior.
package acl
