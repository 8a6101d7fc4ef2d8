package flightsql

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

const (
	authorizationHeader = "authorization"
	bearerPrefix        = "Bearer "
)

// bearerToken attaches an "authorization: Bearer <token>" header to every
// call.
type bearerToken struct {
	token  string
	secure bool
}

var _ credentials.PerRPCCredentials = bearerToken{}

func (b bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{authorizationHeader: bearerPrefix + b.token}, nil
}

func (b bearerToken) RequireTransportSecurity() bool {
	return b.secure
}

// WithBearerToken sends token as a bearer token on every call. The token is
// also sent over insecure transport; use WithSecureBearerToken to refuse
// that.
func WithBearerToken(token string) Option {
	return withToken(token, false)
}

// WithSecureBearerToken is WithBearerToken for connections that must use
// transport security. Dial fails on an insecure connection.
func WithSecureBearerToken(token string) Option {
	return withToken(token, true)
}

func withToken(token string, secure bool) Option {
	return func(c *config) {
		if token == "" {
			return
		}
		c.credOpts = append(c.credOpts, grpc.WithPerRPCCredentials(bearerToken{token: token, secure: secure}))
	}
}
