// Command admintoken prints a bearer token for the admin API scoped to one guild.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/supportdesk/ticket-bot/internal/auth"
	"github.com/supportdesk/ticket-bot/internal/config"
)

func main() {
	guildID := pflag.StringP("guild", "g", "", "guild id the token may read")
	subject := pflag.StringP("subject", "s", "ops", "who the token is issued to")
	pflag.Parse()

	if *guildID == "" {
		pflag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadAuth()
	token, expiresAt, err := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes).GenerateToken(*subject, *guildID)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
