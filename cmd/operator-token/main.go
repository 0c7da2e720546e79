// Command operator-token prints a bearer token for the turn log API, signed
// with OPERATOR_JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"voice-qa-server/internal/auth"
	"voice-qa-server/internal/observability"

	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("sub", "", "operator the token is issued to")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			log.Printf("env.local not loaded, using process environment: %v", err)
		}
	}

	secret := os.Getenv("OPERATOR_JWT_SECRET")
	if secret == "" {
		log.Fatal("OPERATOR_JWT_SECRET is not set")
	}
	if *subject == "" {
		log.Fatal("-sub is required")
	}

	token, err := auth.NewOperatorAuth(secret, observability.NewNopLogger()).IssueToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %s", err)
	}
	fmt.Println(token)
}
