// This is a **mock authentication service**, designed to provide JWT tokens
// for the explorer's maintenance routes, simulating user authentication.
package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gartstein/visaexplorer/internal/explorer/auth"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenHandler generates a JWT and returns it in JSON response
func tokenHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		// Simulate a maintainer for the token
		token, err := auth.GenerateToken("maintainer", secret)
		if err != nil {
			logger.Error("failed to generate token", zap.Error(err))
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(TokenResponse{Token: token}); err != nil {
			http.Error(w, "Failed to encode token", http.StatusInternalServerError)
		}
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	port := getenv("AUTH_PORT", defaultPort)
	secret := getenv("JWT_SECRET", defaultSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /token", tokenHandler(secret, logger))

	logger.Info("Authentication service running", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Fatal("authentication service stopped", zap.Error(err))
	}
}
