// Package backend opens the repository selected by a thingstore.Config.
package backend

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"thingstore"
	dynamostore "thingstore/dynamo"
	fsstore "thingstore/fs"
	kvstore "thingstore/kv"
	sqlstore "thingstore/sql"
)

// Repository is what every backend returns.
type Repository[T thingstore.Document] interface {
	thingstore.ConditionalDocumentRepository[T]
}

// Types lists the accepted Config.Type values.
func Types() []string {
	return []string{
		thingstore.TypeMemory,
		thingstore.TypePostgres,
		thingstore.TypePgx,
		thingstore.TypeMySQL,
		thingstore.TypeSQLite,
		thingstore.TypeFilesystem,
		thingstore.TypeDynamoDB,
	}
}

// Open validates cfg, connects the backend it names, makes sure the
// collection exists and returns a repository over it. The closer releases
// the backend connection.
func Open[T thingstore.Document](ctx context.Context, cfg thingstore.Config, log *logrus.Entry) (Repository[T], io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{
		"storageType": cfg.Type,
		"collection":  cfg.Collection,
	})

	var (
		svc  thingstore.Service
		repo Repository[T]
		err  error
	)
	switch cfg.Type {
	case thingstore.TypeMemory:
		var s *kvstore.Service
		s, err = kvstore.OpenWithName(ctx, "memory", &cfg)
		if err == nil {
			svc = s
			repo = kvstore.NewRepository[T](s, cfg.Collection, kvstore.WithLogger(log))
		}

	case thingstore.TypePostgres, thingstore.TypePgx, thingstore.TypeMySQL, thingstore.TypeSQLite:
		var s *sqlstore.Service
		s, err = sqlstore.OpenWithName(ctx, cfg.Type, &cfg)
		if err == nil {
			svc = s
			repo = sqlstore.NewRepository[T](s, cfg.Collection, sqlstore.WithLogger(log))
		}

	case thingstore.TypeFilesystem:
		var s *fsstore.Service
		s, err = fsstore.Open(ctx, &cfg)
		if err == nil {
			svc = s
			repo, err = fsstore.NewRepository[T](s, cfg.Collection, fsstore.WithLogger(log))
		}

	case thingstore.TypeDynamoDB:
		var s *dynamostore.Service
		s, err = dynamostore.Open(ctx, &cfg)
		if err == nil {
			svc = s
			repo = dynamostore.NewRepository[T](s, cfg.Collection, dynamostore.WithLogger(log))
		}

	default:
		return nil, nil, thingstore.NewConfigErrorForField("type", cfg.Type, "unknown store type")
	}
	if err != nil {
		if svc != nil {
			_ = svc.Close()
		}
		return nil, nil, err
	}

	if err := svc.EnsureCollection(ctx, cfg.Collection); err != nil {
		_ = svc.Close()
		return nil, nil, err
	}

	log.Info("Use storage")
	return repo, svc, nil
}
