// Package config loads the runtime configuration from an optional .env file and
// the process environment, applies defaults and validates every key before the
// application starts. The web starter's NEXT_PUBLIC_* names are accepted as
// aliases for the public keys.
package config
