// Package themes lists a participant's themes and bootstraps an empty catalog
// with the default templates.
package themes

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/ludo/internal/models"
	"github.com/jason-s-yu/ludo/internal/store"
	"github.com/sirupsen/logrus"
)

//go:embed default_themes.json
var defaultThemes []byte

// Defaults returns the embedded default theme templates.
func Defaults() ([]models.ThemeTemplate, error) {
	var tpls []models.ThemeTemplate
	if err := json.Unmarshal(defaultThemes, &tpls); err != nil {
		return nil, fmt.Errorf("decode default themes: %w", err)
	}
	return tpls, nil
}

// Lister serves ListThemes.
type Lister struct {
	catalog   store.ThemeCatalog
	seeder    store.ThemeSeeder
	templates []models.ThemeTemplate
	logger    *logrus.Logger
}

func NewLister(catalog store.ThemeCatalog, seeder store.ThemeSeeder, templates []models.ThemeTemplate, logger *logrus.Logger) *Lister {
	return &Lister{catalog: catalog, seeder: seeder, templates: templates, logger: logger}
}

// ListThemes returns the user's themes, most recent first. An empty catalog
// is seeded once with the default templates and queried exactly once more;
// a seeding failure is logged and the (empty) result returned as is.
func (l *Lister) ListThemes(ctx context.Context, userID uuid.UUID) ([]models.Theme, error) {
	list, err := l.catalog.ListOwnedThemes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 || len(l.templates) == 0 {
		return list, nil
	}

	log := l.logger.WithField("user_id", userID)
	if err := l.seeder.SeedThemes(ctx, userID, l.templates); err != nil {
		log.Warnf("seeding default themes failed: %v", err)
		return list, nil
	}
	log.Infof("seeded %d default themes", len(l.templates))

	return l.catalog.ListOwnedThemes(ctx, userID)
}
