// Package google provides OAuth2 authentication and token management for
// Google Calendar access.
//
// Tokens are kept per person email, either as files in a token directory
// or as JSON values in Redis. The TokenProvider interface lets either
// store back an Authenticator, which proves a token still works before
// any calendar call is made.
package google
