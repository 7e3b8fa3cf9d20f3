//go:build tools

// Package tools lists the generators and dev helpers ce-queue relies on.
// None are imported, so none appear in go.mod; they run through `go run pkg@version`.
//
//   - mockgen (go.uber.org/mock/mockgen@v0.6.0): `go generate ./internal/mocks`
//     rebuilds the port mocks after an internal/core interface changes.
//   - air (github.com/air-verse/air@v1.63.0): live reload of cmd/ce-queue
//     against the docker compose Postgres and Redis.
package tools
