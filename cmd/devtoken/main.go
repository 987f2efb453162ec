// Command devtoken signs a bearer token for local testing against the
// storefront API, using the same JWT_SECRET and JWT_ISSUER as the server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/N1kunj1998/ECOMMERCE/internal/config"
	"github.com/N1kunj1998/ECOMMERCE/pkg/middleware"
)

func main() {
	userID := flag.String("user", "", "user id (random when empty)")
	name := flag.String("name", "Dev User", "display name")
	role := flag.String("role", "user", "role: user or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	if *userID == "" {
		*userID = uuid.NewString()
	}
	token, err := middleware.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer).Issue(middleware.Identity{
		UserID: *userID,
		Name:   *name,
		Role:   *role,
	}, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
