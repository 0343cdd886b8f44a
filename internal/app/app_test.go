package app

import (
	"context"
	"testing"

	"LiteratureHarvester/internal/config"
	"LiteratureHarvester/internal/ports"
	"LiteratureHarvester/internal/usecase"
)

type gateCatalog struct {
	ports.Catalog
	dropped bool
}

func (c *gateCatalog) Drop(context.Context) error {
	c.dropped = true
	return nil
}

type gateArchive struct {
	ports.Archive
	removed bool
}

func (a *gateArchive) RemoveAll(context.Context) (int, error) {
	a.removed = true
	return 0, nil
}

func gateApp(catalog *gateCatalog, store *gateArchive, bg config.BackgroundConfig) *Application {
	cfg := config.Config{
		Catalog:    config.CatalogConfig{Database: "literature_db"},
		Background: bg,
	}
	return &Application{
		cfg: cfg,
		lifecycle: usecase.NewLifecycle(usecase.LifecycleDeps{
			Catalog: catalog,
			Archive: store,
		}),
	}
}

func TestMaybeResetRequiresConfirmation(t *testing.T) {
	catalog := &gateCatalog{}
	store := &gateArchive{}
	a := gateApp(catalog, store, config.BackgroundConfig{Reset: true, ResetConfirm: "wrong"})

	if err := a.maybeReset(context.Background()); err == nil {
		t.Fatal("expected an error for a mismatched confirmation")
	}
	if catalog.dropped || store.removed {
		t.Error("nothing may be wiped on a mismatched confirmation")
	}
}

func TestMaybeResetConfirmed(t *testing.T) {
	catalog := &gateCatalog{}
	store := &gateArchive{}
	a := gateApp(catalog, store, config.BackgroundConfig{Reset: true, ResetConfirm: "literature_db"})

	if err := a.maybeReset(context.Background()); err != nil {
		t.Fatalf("maybeReset: %v", err)
	}
	if !catalog.dropped {
		t.Error("catalog should have been dropped")
	}
	if !store.removed {
		t.Error("archive should have been cleared")
	}
}

func TestMaybeResetDisabled(t *testing.T) {
	catalog := &gateCatalog{}
	a := gateApp(catalog, &gateArchive{}, config.BackgroundConfig{Reset: false, ResetConfirm: "literature_db"})

	if err := a.maybeReset(context.Background()); err != nil {
		t.Fatalf("maybeReset: %v", err)
	}
	if catalog.dropped {
		t.Error("reset must not run when the flag is off")
	}
}
