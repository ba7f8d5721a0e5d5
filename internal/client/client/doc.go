// Package client talks to the gophauth gRPC service on behalf of the CLI.
//
// GRPCClient holds the current token pair, attaches the access token to
// every call, and on a "token expired" rejection refreshes the pair once and
// retries. Status codes are mapped to sentinels (ErrUnauthorized,
// ErrUnavailable, or the common validation/conflict/not-found errors) with
// the server's message preserved after the sentinel.
//
// InitDatabase and RunMigrations bootstrap the local SQLite state file.
package client
