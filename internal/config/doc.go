// Package config loads schedsync settings from the environment.
//
// Values come from process environment variables layered over an optional
// .env file. Every key has a default, so a bare development setup runs
// against local PostgreSQL and file-based tokens.
package config
