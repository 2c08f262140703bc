// Package api exposes the agent's admin REST surface: webhook ingestion of
// chat messages, action execution, transaction construction, cache
// maintenance, and interaction history.
package api
