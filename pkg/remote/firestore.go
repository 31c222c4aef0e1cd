package remote

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/noah-isme/smk-student-hub/pkg/config"
)

type firestoreReader struct {
	client *firestore.Client
}

func (r *firestoreReader) Document(ctx context.Context, collection, name string) (map[string]interface{}, bool, error) {
	snap, err := r.client.Collection(collection).Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !snap.Exists() {
		return nil, false, nil
	}
	return snap.Data(), true, nil
}

func (r *firestoreReader) Close() error {
	return r.client.Close()
}

// NewFirestore builds a lazily connecting Firestore-backed client.
func NewFirestore(cfg config.RemoteConfig, logger *zap.Logger) *Client {
	return newClient(cfg.Collection, cfg.Timeout, func(ctx context.Context) (documentReader, error) {
		return connectFirestore(ctx, cfg)
	}, logger)
}

func connectFirestore(ctx context.Context, cfg config.RemoteConfig) (documentReader, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore: %w", err)
	}
	return &firestoreReader{client: client}, nil
}
