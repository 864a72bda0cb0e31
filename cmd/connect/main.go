package main

import (
	"log"
	"net/http"

	"github.com/tulenlabs/tulen-connect/internal/auth/creds"
	"github.com/tulenlabs/tulen-connect/internal/auth/flow"
	"github.com/tulenlabs/tulen-connect/internal/auth/oauth"
	"github.com/tulenlabs/tulen-connect/internal/auth/token"
	"github.com/tulenlabs/tulen-connect/internal/config"
	"github.com/tulenlabs/tulen-connect/internal/db"
	"github.com/tulenlabs/tulen-connect/internal/httpapi"
	"github.com/tulenlabs/tulen-connect/internal/platform"
	"github.com/tulenlabs/tulen-connect/internal/store"
)

func main() {
	cfg := config.MustLoad()

	if err := platform.LoadOverrides(cfg.ProfileConfig); err != nil {
		log.Fatalf("Failed to load platform profiles: %v", err)
	}

	database, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	stores := store.NewManager(database)
	resolver := creds.NewResolver(cfg, stores.Credentials)
	oauthClient := oauth.NewClient()
	flows := flow.NewStore()

	tokens := token.NewManager(stores.Integrations, resolver, oauthClient)
	tokens.StartRefreshSweep(cfg.SweepInterval)

	router := httpapi.NewRouter(httpapi.Deps{
		Config:   cfg,
		Stores:   stores,
		Flows:    flows,
		Resolver: resolver,
		OAuth:    oauthClient,
		Tokens:   tokens,
	})

	addr := cfg.HTTPHost + ":" + cfg.HTTPPort
	log.Printf("🚀 Tulen Connect starting on http://%s", addr)
	log.Printf("📊 Dashboard: http://%s", addr)
	log.Printf("🔌 Integrations API: http://%s/api/integrations", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
