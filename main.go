package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/joho/godotenv"

	"chatbox/api"
	"chatbox/call"
	"chatbox/config"
	"chatbox/crypto"
	"chatbox/engine"
	"chatbox/notify"
	"chatbox/session"
	"chatbox/storage"
	"chatbox/store"
)

func main() {
	// Local overrides (server URL, token) may live in a .env next to the
	// binary; absence is not an error.
	_ = godotenv.Load()

	cfg, cfgPath, err := config.LoadOrCreate()
	if err != nil {
		log.Fatalf("startup failed while loading config: %v", err)
	}

	privateKey, err := crypto.EnsureRSAKeyPair(cfg.RSAPrivateKeyPath, cfg.RSAPublicKeyPath)
	if err != nil {
		log.Fatalf("startup failed while preparing RSA keypair: %v", err)
	}

	token := os.Getenv("CHATBOX_TOKEN")
	if token == "" {
		log.Fatalf("startup failed: CHATBOX_TOKEN is not set")
	}

	fmt.Printf("Client ID:       %s\n", cfg.ClientID)
	fmt.Printf("Client Name:     %s\n", cfg.ClientName)
	fmt.Printf("Server URL:      %s\n", cfg.ServerURL)
	fmt.Printf("Fingerprint:     %s\n", crypto.KeyFingerprint(&privateKey.PublicKey))
	fmt.Printf("Config File:     %s\n", cfgPath)
	dataDir := filepath.Dir(cfgPath)
	fmt.Printf("Data Directory:  %s\n", dataDir)

	cache, dbPath, err := storage.Open(filepath.Join(dataDir, "cache"))
	if err != nil {
		log.Fatalf("startup failed while opening database: %v", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()
	fmt.Printf("Database File:   %s\n", dbPath)

	defer memguard.Purge()
	sess := session.New(token, crypto.MarshalPrivateKeyPEM(privateKey))
	defer sess.Teardown()

	client, err := api.NewClient(cfg.ServerURL, token)
	if err != nil {
		log.Fatalf("startup failed while building API client: %v", err)
	}

	eng, err := engine.New(engine.Options{
		Session:       sess,
		API:           client,
		Timeline:      store.New(),
		Notifications: notify.New(time.Duration(cfg.NotificationTTLSec) * time.Second),
		Cache:         cache,
		OnIdentityResolved: func(userID string) {
			log.Printf("signed in as %s", userID)
		},
		OnCallStateChanged: func(state call.State, callSession call.Session) {
			log.Printf("call: %s peer=%s", state, callSession.Peer)
		},
	})
	if err != nil {
		log.Fatalf("startup failed while building engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Connect(ctx, cfg.ChannelURL()); err != nil {
		log.Fatalf("startup failed while connecting channel: %v", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Printf("channel close error: %v", err)
		}
	}()

	if err := eng.RefreshDirectory(ctx); err != nil {
		log.Printf("directory refresh failed: %v", err)
	}

	fmt.Println("Status:          running (press Ctrl+C to stop)")
	<-ctx.Done()
	fmt.Println("Status:          shutting down")
}
