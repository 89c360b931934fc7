// Package main provides a debugging tool that mints a provider token from a
// .p8 signing key and optionally sends a test alert to one device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/TreeBites/treebites-push/internal/apns"
	"github.com/TreeBites/treebites-push/types"
)

func main() {
	keyFile := flag.String("key-file", "", "Path to the .p8 signing key")
	keyID := flag.String("key-id", os.Getenv("APNS_KEY_ID"), "Key identifier")
	teamID := flag.String("team-id", os.Getenv("APNS_TEAM_ID"), "Team identifier")
	bundleID := flag.String("bundle-id", "com.treebites.app", "Topic used for -device sends")
	production := flag.Bool("production", false, "Send to the production gateway")
	device := flag.String("device", "", "Device token to send a test alert to")
	title := flag.String("title", "Test notification", "Alert title for -device sends")
	body := flag.String("body", "", "Alert body for -device sends")
	flag.Parse()

	if *keyFile == "" {
		log.Fatal("-key-file is required")
	}
	keyPEM, err := os.ReadFile(*keyFile)
	if err != nil {
		log.Fatalf("Failed to read key file: %v", err)
	}

	cred := types.PushCredential{
		KeyID:       *keyID,
		TeamID:      *teamID,
		SigningKey:  string(keyPEM),
		BundleID:    *bundleID,
		Environment: types.PushEnvironmentSandbox,
	}
	if *production {
		cred.Environment = types.PushEnvironmentProduction
	}

	signer, err := apns.NewSigner(cred)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := signer.Token(ctx)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	if *device == "" {
		fmt.Println(token.Value)
		return
	}

	dispatcher := apns.NewDispatcher(cred)
	log.Printf("Sending to %s", dispatcher.Endpoint(*device))
	res, err := dispatcher.Send(ctx, token, types.NotificationPayload{
		DeviceToken: *device,
		Title:       *title,
		Body:        *body,
	})
	if err != nil {
		log.Fatalf("Send failed: %v", err)
	}
	fmt.Printf("status=%d apns-id=%s\n", res.StatusCode, res.APNsID)
}
