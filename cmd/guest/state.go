package main

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/charlesng35/weddingrsvp/internal/cache"
	"github.com/charlesng35/weddingrsvp/internal/database"
	"github.com/charlesng35/weddingrsvp/internal/guestsession"
	"github.com/charlesng35/weddingrsvp/internal/models"
	"github.com/charlesng35/weddingrsvp/pkg/client"
)

// environment is what every command runs against.
type environment struct {
	out     io.Writer
	db      *gorm.DB
	api     *client.Client
	session *guestsession.Session
}

// openEnvironment opens the local state file and restores the session. A
// device that already holds an invitation on the server is unlocked again
// without asking for the code.
func openEnvironment(ctx context.Context, g globalFlags, out io.Writer) (*environment, error) {
	api, err := client.New(g.server)
	if err != nil {
		return nil, err
	}

	db, err := openState(g.state)
	if err != nil {
		return nil, err
	}

	session, err := guestsession.Open(ctx, cache.NewDatabaseStore(db), api)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	return &environment{out: out, db: db, api: api, session: session}, nil
}

func openState(path string) (*gorm.DB, error) {
	db, err := database.Open(database.Config{Driver: "sqlite", Path: path})
	if err != nil {
		return nil, fmt.Errorf("open session state: %w", err)
	}
	if err := db.AutoMigrate(&models.CacheEntry{}); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate session state: %w", err)
	}
	return db, nil
}

func (e *environment) Close() {
	_ = database.Close(e.db)
}
