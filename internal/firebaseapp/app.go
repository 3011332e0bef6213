package firebaseapp

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/bookclurb/clurb-api/internal/config"
)

var projectFromURL = regexp.MustCompile(`^https://([a-z0-9-]+?)(?:-default-rtdb)?\.(?:[a-z0-9-]+\.)?(?:firebaseio\.com|firebasedatabase\.app)`)

// ProjectID returns the configured project id, falling back to the one
// embedded in an RTDB URL such as https://PROJECT-default-rtdb.firebaseio.com.
func ProjectID(cfg config.FirebaseConfig) (string, error) {
	if cfg.ProjectID != "" {
		return cfg.ProjectID, nil
	}
	if m := projectFromURL.FindStringSubmatch(cfg.DatabaseURL); len(m) > 1 {
		return m[1], nil
	}
	return "", errors.New("firebase project id is not set and cannot be derived from the database url")
}

// New initialises the Admin SDK app shared by the document store and the
// ID-token verifier. Without a credentials file, application default
// credentials are used.
func New(ctx context.Context, cfg config.FirebaseConfig, logger zerolog.Logger) (*firebase.App, error) {
	projectID, err := ProjectID(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ProjectID == "" {
		logger.Info().Str("project_id", projectID).Msg("derived firebase project id from database url")
	}

	fbCfg := &firebase.Config{
		ProjectID:   projectID,
		DatabaseURL: cfg.DatabaseURL,
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}
