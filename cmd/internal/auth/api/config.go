package authapi

// DevUser describes the synthetic principal injected by the guard's
// development bypass.
type DevUser struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// Config controls auth API behavior. Values are injected by the caller;
// the package never reads the environment itself.
type Config struct {
	// Env is the deployment environment name. The guard's DevUser
	// bypass only activates when this is exactly "development".
	Env string

	// TrustProxy enables X-Forwarded-For / X-Real-IP parsing for
	// client addresses.
	TrustProxy bool

	// MaxBodyBytes caps request bodies on the auth endpoints.
	MaxBodyBytes int64

	// DevUser, when its ID is non-empty, is served to unauthenticated
	// requests in development.
	DevUser DevUser
}

// DefaultConfig returns production-safe defaults.
func DefaultConfig() Config {
	return Config{
		Env:          "production",
		MaxBodyBytes: 1 << 20, // 1 MiB
	}
}
