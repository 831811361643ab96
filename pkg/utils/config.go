package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("MANGASHELF_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("MANGASHELF_JWT_ISSUER")
	if issuer == "" {
		issuer = "mangashelf"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("MANGASHELF_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: duration,
	}
}

// LocalLibraryDir is the root the local source scans for archive files.
func LocalLibraryDir() string {
	if d := os.Getenv("MANGASHELF_LOCAL_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".mangashelf", "local")
}

// CoversDir is where user-set custom covers live.
func CoversDir() string {
	if d := os.Getenv("MANGASHELF_COVERS_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".mangashelf", "covers")
}
