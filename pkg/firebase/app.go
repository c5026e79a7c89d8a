package firebase

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// NewApp creates the Firebase app. Credentials come from the JSON in
// config, then the file, then application default credentials.
func NewApp(ctx context.Context, cfg Config) (*fb.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var conf *fb.Config
	if cfg.ProjectID != "" {
		conf = &fb.Config{ProjectID: cfg.ProjectID}
	}

	app, err := fb.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, errors.Join(ErrFailedToInit, err)
	}
	return app, nil
}

// Clients returns the auth and Firestore clients of app.
func Clients(ctx context.Context, app *fb.App) (*auth.Client, *firestore.Client, error) {
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, errors.Join(ErrFailedToInit, err)
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, nil, errors.Join(ErrFailedToInit, err)
	}
	return authClient, fsClient, nil
}
