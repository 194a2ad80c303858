package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/PawTalesApp/PawTales/app/repository"
	"github.com/PawTalesApp/PawTales/internal/pkg/ai"
	"github.com/PawTalesApp/PawTales/internal/pkg/database"
	"github.com/PawTalesApp/PawTales/internal/pkg/generation"
	"github.com/PawTalesApp/PawTales/internal/pkg/ledger"
	"github.com/PawTalesApp/PawTales/internal/pkg/storage"
	"github.com/PawTalesApp/PawTales/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

var (
	initOnce    sync.Once
	ledgerSvc   *ledger.Service
	genSvc      *generation.Service
	storageKeys *storage.Config
	objectStore storage.ObjectStore
)

// InitializeControllers wires the controller layer to its services and
// repositories. Called once from the router during app startup.
func InitializeControllers() {
	initOnce.Do(func() {
		db := database.GetDB()
		repository.InitializeFactory(db)
		repos := repository.GetGlobalRepositories()

		ledgerSvc = ledger.NewServiceFromDB(db)

		cfg, err := storage.LoadConfig()
		if err != nil {
			log.Errorf("[Init] object storage not configured: %v", err)
		} else {
			store, err := storage.NewClient(cfg)
			if err != nil {
				log.Errorf("[Init] object storage unavailable: %v", err)
			} else {
				storageKeys = cfg
				objectStore = store
			}
		}

		genSvc = generation.NewService(
			ledgerSvc,
			ai.NewClientFromEnv(),
			objectStore,
			storageKeys,
			repos.Pet,
			repos.Story,
		)
	})
}

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// deleteStoredObjects removes stored media after the owning rows are gone.
// Best effort: a leftover object only costs storage, so failures are logged
// instead of surfaced to the user.
func deleteStoredObjects(keys []string) {
	if objectStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := objectStore.Delete(ctx, key); err != nil {
			log.Errorf("[Storage] could not delete object %s: %v", key, err)
		}
	}
}

// generateShareLink returns a short random token for public share URLs.
func generateShareLink() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
