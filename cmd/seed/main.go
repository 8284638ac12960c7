// Command seed populates a development database with demo communities,
// users, devices, and memberships. It goes through the service layer so the
// seeded state is exactly what the API would have produced, and it is safe
// to run twice.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/chidhvilasa/access-control-backend/internal/access/keys"
	"github.com/chidhvilasa/access-control-backend/internal/access/service"
	"github.com/chidhvilasa/access-control-backend/internal/access/store/sqlite"
	"github.com/chidhvilasa/access-control-backend/internal/config"
	"github.com/chidhvilasa/access-control-backend/internal/db"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "seed ", log.LstdFlags|log.LUTC)
	ctx := context.Background()

	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()
	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	directory := sqlite.NewDirectoryStore(sqlDB, writer)
	memberships := sqlite.NewMembershipStore(sqlDB, writer)
	keysets := sqlite.NewKeySetStore(sqlDB, writer)

	registry := keys.NewRegistry(keysets)
	communitySvc := service.NewCommunityService(directory, registry)
	membershipSvc := service.NewMembershipService(directory, directory, memberships)

	communities := []struct {
		id, name, description string
	}{
		{"apt101", "Apartment 101 Parking", "Main apartment building parking access"},
		{"public_parking", "Public Parking Lot", "City public parking facility"},
		{"gym_access", "Gym Access", "24/7 gym facility access"},
	}
	for _, c := range communities {
		pub, err := communitySvc.Create(ctx, c.id, c.name, c.description)
		if errors.Is(err, service.ErrCommunityExists) {
			logger.Printf("community %s already exists, skipping", c.id)
			continue
		}
		if err != nil {
			logger.Fatalf("create community %s: %v", c.id, err)
		}
		logger.Printf("created community %s public_key=%s...", c.id, pub[:16])
	}

	registrations := []struct {
		deviceID, userID, phone, communityID string
		approve                              bool
	}{
		{"android_device_001", "user001", "+1234567890", "apt101", true},
		{"android_device_002", "user002", "+1234567891", "public_parking", true},
		{"android_device_003", "user003", "+1234567892", "gym_access", false},
	}
	for _, r := range registrations {
		status, err := membershipSvc.RegisterDevice(ctx, r.deviceID, r.userID, r.phone, "android", r.communityID)
		if err != nil {
			logger.Fatalf("register %s: %v", r.deviceID, err)
		}
		logger.Printf("registered %s user=%s community=%s status=%s", r.deviceID, r.userID, r.communityID, status)

		if !r.approve {
			continue
		}
		pending, err := membershipSvc.PendingRequests(ctx, r.communityID)
		if err != nil {
			logger.Fatalf("list pending for %s: %v", r.communityID, err)
		}
		for _, m := range pending {
			if m.UserID != r.userID {
				continue
			}
			if err := membershipSvc.Approve(ctx, m.MembershipID, "admin"); err != nil {
				logger.Fatalf("approve membership %d: %v", m.MembershipID, err)
			}
			logger.Printf("approved %s for %s", r.userID, r.communityID)
		}
	}

	logger.Printf("seed complete db=%s", cfg.DBPath)
}
