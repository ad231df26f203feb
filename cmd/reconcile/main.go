package main

import (
	"context"
	"log"

	"github.com/odin-book/backend/internal/repositories"
	"github.com/odin-book/backend/internal/service"
	"github.com/odin-book/backend/pkg/config"
)

// One-shot sweep that repairs asymmetric friendship state left behind by
// interrupted two-record updates. Intended to run from cron.
func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	cfg := config.Load()
	userRepo := repositories.NewMongoUserRepository(db.Mongo.Database(cfg.MongoDatabase))
	reconciler := service.NewReconciler(userRepo)

	repairs, err := reconciler.Sweep(context.Background())
	if err != nil {
		log.Fatalf("Reconciliation sweep failed: %v", err)
	}

	for _, rep := range repairs {
		log.Printf("repair %s: user=%s other=%s field=%s action=%s", rep.ID, rep.UserID.Hex(), rep.OtherID.Hex(), rep.Field, rep.Action)
	}
	log.Printf("Reconciliation sweep complete, %d repair(s) applied.", len(repairs))
}
