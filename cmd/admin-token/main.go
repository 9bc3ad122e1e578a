// Command admin-token mints a bearer token for the admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wolfman30/sitecraft/internal/config"
	httpmiddleware "github.com/wolfman30/sitecraft/internal/http/middleware"
)

func main() {
	subject := flag.String("sub", "studio-admin", "token subject")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.AdminJWTSecret == "" {
		fmt.Fprintln(os.Stderr, "ADMIN_JWT_SECRET is not set")
		os.Exit(1)
	}
	token, err := httpmiddleware.IssueAdminToken(cfg.AdminJWTSecret, *subject, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
