// cmd/gentoken prints a signed access token for local testing.
// Usage: go run ./cmd/gentoken -tenant <uuid> -user alice -role manager
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"stockledger/internal/config"
	"stockledger/internal/middleware"

	"github.com/google/uuid"
)

func main() {
	tenant := flag.String("tenant", "", "tenant id (random when empty)")
	user := flag.String("user", "dev", "user id")
	role := flag.String("role", middleware.RoleAdmin, "operator | manager | admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	tenantID := *tenant
	if tenantID == "" {
		tenantID = uuid.NewString()
	} else if _, err := uuid.Parse(tenantID); err != nil {
		fmt.Fprintln(os.Stderr, "tenant must be a uuid")
		os.Exit(2)
	}

	ttl := time.Duration(cfg.JWTExpirationHours) * time.Hour
	token, err := middleware.IssueToken(cfg.JWTSecret, middleware.JWTClaims{
		UserID:   *user,
		TenantID: tenantID,
		Role:     *role,
	}, ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "tenant %s, expires in %s\n", tenantID, ttl)
	fmt.Println(token)
}
