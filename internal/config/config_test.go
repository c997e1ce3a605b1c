package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Set required JWT_SECRET
	os.Setenv("JWT_SECRET", "test-secret-key")
	defer os.Unsetenv("JWT_SECRET")

	// Clear any other env vars that might interfere
	envVars := []string{"SERVER_ADDR", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "IDP_BASE_URL", "REDIS_ADDR", "VERIFY_CACHE_TTL"}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Check defaults
	if cfg.ServerAddr != "0.0.0.0" {
		t.Errorf("ServerAddr = %q, want %q", cfg.ServerAddr, "0.0.0.0")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "localhost")
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, want %q", cfg.DBSSLMode, "disable")
	}
	if cfg.VerifyCacheTTL != 30*time.Second {
		t.Errorf("VerifyCacheTTL = %v, want %v", cfg.VerifyCacheTTL, 30*time.Second)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting should be enabled by default")
	}
}

func TestLoad_RequiredJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load should fail when JWT_SECRET is not set")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("JWT_SECRET", "custom-secret")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("DB_HOST", "db.example.com")
	os.Setenv("VERIFY_CACHE_TTL", "2m")
	defer func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DB_HOST")
		os.Unsetenv("VERIFY_CACHE_TTL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.DBHost != "db.example.com" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "db.example.com")
	}
	if cfg.VerifyCacheTTL != 2*time.Minute {
		t.Errorf("VerifyCacheTTL = %v, want %v", cfg.VerifyCacheTTL, 2*time.Minute)
	}
}

func TestHasIDP(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		token    string
		expected bool
	}{
		{
			name:     "both set",
			baseURL:  "https://idp.example.com",
			token:    "service-token",
			expected: true,
		},
		{
			name:     "only base url",
			baseURL:  "https://idp.example.com",
			token:    "",
			expected: false,
		},
		{
			name:     "only token",
			baseURL:  "",
			token:    "service-token",
			expected: false,
		},
		{
			name:     "neither set",
			baseURL:  "",
			token:    "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				IDPBaseURL:      tt.baseURL,
				IDPServiceToken: tt.token,
			}
			if cfg.HasIDP() != tt.expected {
				t.Errorf("HasIDP() = %v, want %v", cfg.HasIDP(), tt.expected)
			}
		})
	}
}

func TestHasRedis(t *testing.T) {
	cfg := &Config{}
	if cfg.HasRedis() {
		t.Error("HasRedis() = true with no address")
	}
	cfg.RedisAddr = "localhost:6379"
	if !cfg.HasRedis() {
		t.Error("HasRedis() = false with address set")
	}
}

func TestGetEnvInt_InvalidValue(t *testing.T) {
	os.Setenv("TEST_INT", "not-a-number")
	defer os.Unsetenv("TEST_INT")

	result := getEnvInt("TEST_INT", 42)
	if result != 42 {
		t.Errorf("getEnvInt should return default for invalid value, got %d", result)
	}
}

func TestGetEnvDuration_InvalidValue(t *testing.T) {
	os.Setenv("TEST_DURATION", "invalid")
	defer os.Unsetenv("TEST_DURATION")

	result := getEnvDuration("TEST_DURATION", 5*time.Minute)
	if result != 5*time.Minute {
		t.Errorf("getEnvDuration should return default for invalid value, got %v", result)
	}
}
