// Package users stores password-authenticated principals and adapts them to
// the guard package. Repositories exist for Postgres and memory; Provider
// turns either into a guard.CredentialsProvider.
package users
