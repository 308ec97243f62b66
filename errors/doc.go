// Package errors provides the AppError type shared by the login service,
// the credential store adapter, and the route layer that renders responses.
// Every authentication failure collapses into InvalidCredentials so a client
// cannot tell an unknown account from a wrong password.
package errors
