package config

// AuthConfig describes authentication for the status server.
type AuthConfig struct {
	// Type: "none", "basic", "bearer"
	Type string `toml:"type"`

	BasicAuth  *BasicAuthConfig  `toml:"basic_auth"`
	BearerAuth *BearerAuthConfig `toml:"bearer_auth"`
}

type BasicAuthConfig struct {
	Users []UserAuth `toml:"users"`
}

type UserAuth struct {
	Username string `toml:"username"`
	// PasswordHash is a bcrypt hash, see the mqbridge-auth tool
	PasswordHash string `toml:"password_hash"`
}

type BearerAuthConfig struct {
	// Tokens are static bearer tokens accepted as-is
	Tokens []string `toml:"tokens"`

	// JWTSigningKey enables HS256 JWT validation when set
	JWTSigningKey string `toml:"jwt_signing_key"`
}
