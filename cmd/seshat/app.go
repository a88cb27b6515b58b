package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seshat/internal/auth"
	"github.com/kailas-cloud/seshat/internal/config"
	dbBleve "github.com/kailas-cloud/seshat/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/seshat/internal/db/redis"
	dombook "github.com/kailas-cloud/seshat/internal/domain/book"
	"github.com/kailas-cloud/seshat/internal/mail"
	"github.com/kailas-cloud/seshat/internal/pictures"
	bookrepo "github.com/kailas-cloud/seshat/internal/repository/book"
	"github.com/kailas-cloud/seshat/internal/repository/searchindex"
	tagrepo "github.com/kailas-cloud/seshat/internal/repository/tag"
	userrepo "github.com/kailas-cloud/seshat/internal/repository/user"
	"github.com/kailas-cloud/seshat/internal/search"
	"github.com/kailas-cloud/seshat/internal/storage"
	chiTransport "github.com/kailas-cloud/seshat/internal/transport/chi"
	accountuc "github.com/kailas-cloud/seshat/internal/usecase/account"
	authuc "github.com/kailas-cloud/seshat/internal/usecase/auth"
	healthuc "github.com/kailas-cloud/seshat/internal/usecase/health"
	libraryuc "github.com/kailas-cloud/seshat/internal/usecase/library"
	searchuc "github.com/kailas-cloud/seshat/internal/usecase/search"
)

// app is the wired object graph shared by the server and the CLI commands.
type app struct {
	search *searchuc.Service
	server *chiTransport.Server

	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	store, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, func() { _ = store.Close() })
	logger.Info("Opened database", zap.String("path", cfg.Database.Path))

	books := bookrepo.New(store)
	users := userrepo.New(store)
	tags := tagrepo.New(store)

	registry := search.NewRegistry()
	if err := registry.Register(books.SearchKind()); err != nil {
		return nil, fmt.Errorf("register search kinds: %w", err)
	}

	backend, resetter, err := a.openSearchBackend(ctx, cfg.Search, registry, logger)
	if err != nil {
		return nil, err
	}

	client := search.NewClient(backend, registry, logger)
	syncer := search.NewSynchronizer(client, logger)
	store.OnBegin(func(tx *storage.Tx) { syncer.Bind(tx) })

	tokens, err := auth.NewTokens(cfg.Auth.SecretKey,
		time.Duration(cfg.Auth.SessionTTLHours)*time.Hour,
		time.Duration(cfg.Auth.ResetTTLMin)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("create token issuer: %w", err)
	}

	var mailer mail.Mailer
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
		})
	} else {
		logger.Warn("No SMTP host configured, emails will be logged")
		mailer = mail.NewLog(logger)
	}

	pictureStore, staticDir, err := openPictureStore(ctx, cfg.Pictures)
	if err != nil {
		return nil, err
	}
	pics := pictures.New(pictureStore)

	authSvc := authuc.New(users, tokens, mailer, authuc.Config{
		ResetURL:   cfg.HTTP.PublicURL + "/reset_password",
		ResetEvery: time.Duration(cfg.Auth.ResetEverySec) * time.Second,
		ResetBurst: cfg.Auth.ResetBurst,
	}, logger)
	librarySvc := libraryuc.New(store, books, users, tags)
	accountSvc := accountuc.New(store, users, books, authSvc, pics, logger)
	a.search = searchuc.New(client, search.Loader[*dombook.Book](books.GetMany), syncer, resetter, logger).
		WithPerPage(cfg.Search.PerPage)
	healthSvc := healthuc.New(store, client)

	a.server = chiTransport.NewServer(chiTransport.Services{
		Auth:    authSvc,
		Library: librarySvc,
		Account: accountSvc,
		Search:  a.search,
		Health:  healthSvc,
	}, chiTransport.CookieConfig{
		TTL:    tokens.SessionTTL(),
		Secure: cfg.HTTP.SecureCookies,
	}, logger)
	if staticDir != "" {
		a.server.WithStatic(cfg.Pictures.URLPrefix, staticDir)
	}

	ok = true
	return a, nil
}

// openSearchBackend connects the configured index. A nil backend disables
// search; the resetter is nil for backends that cannot drop their index.
func (a *app) openSearchBackend(
	ctx context.Context, cfg config.SearchConfig, registry *search.Registry, logger *zap.Logger,
) (search.Backend, searchuc.IndexResetter, error) {
	switch cfg.Driver {
	case "redis":
		rdb, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)

		if err := rdb.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			return nil, nil, fmt.Errorf("redis not ready: %w", err)
		}
		repo := searchindex.New(rdb, cfg.KeyPrefix).WithFieldWeights(cfg.FieldWeights)
		if err := repo.EnsureIndexes(ctx, registry.Kinds()); err != nil {
			return nil, nil, fmt.Errorf("ensure search indexes: %w", err)
		}
		logger.Info("Connected to search index", zap.String("driver", "redis"), zap.Strings("addrs", cfg.Addrs))
		return repo, repo, nil

	case "bleve":
		idx, err := dbBleve.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bleve index: %w", err)
		}
		a.closers = append(a.closers, func() { _ = idx.Close() })
		logger.Info("Opened search index", zap.String("driver", "bleve"), zap.String("path", cfg.Path))
		return idx, nil, nil

	default:
		logger.Warn("Search is disabled")
		return nil, nil, nil
	}
}

// openPictureStore returns the picture store and, for local storage, the
// directory to serve over HTTP.
func openPictureStore(ctx context.Context, cfg config.PicturesConfig) (pictures.Store, string, error) {
	if cfg.Driver == "s3" {
		s3, err := pictures.NewS3(ctx, pictures.S3Config{
			Endpoint:  cfg.Endpoint,
			Bucket:    cfg.Bucket,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			PublicURL: cfg.PublicURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("open s3 picture store: %w", err)
		}
		return s3, "", nil
	}

	local, err := pictures.NewLocal(cfg.Dir, cfg.URLPrefix)
	if err != nil {
		return nil, "", fmt.Errorf("open local picture store: %w", err)
	}
	return local, local.Dir(), nil
}
