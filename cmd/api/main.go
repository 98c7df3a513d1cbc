package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpadp "doctrack/internal/adapter/http"
	"doctrack/internal/adapter/notify"
	"doctrack/internal/adapter/repository/gormrepo"
	"doctrack/internal/adapter/repository/jsonfile"
	"doctrack/internal/config"
	"doctrack/internal/domain/document"
	"doctrack/internal/domain/uow"
	"doctrack/internal/domain/user"
	"doctrack/internal/infrastructure/cache"
	"doctrack/internal/infrastructure/db"
	"doctrack/internal/infrastructure/logging"
	"doctrack/internal/usecase/auth"
	docuc "doctrack/internal/usecase/document"
)

type storage struct {
	docs  document.Repository
	users user.Repository
	tx    uow.UnitOfWork
	close func() error
}

func openStorage(cfg *config.Config) (*storage, error) {
	if cfg.StoreDriver == config.StoreFile {
		s, err := jsonfile.Open(cfg.DBFile)
		if err != nil {
			return nil, err
		}
		return &storage{docs: s.Documents(), users: s.Users(), tx: s, close: func() error { return nil }}, nil
	}
	gdb, err := db.OpenGorm(cfg.StoreDriver, cfg.DSN(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &storage{
		docs:  gormrepo.NewDocumentRepository(gdb),
		users: gormrepo.NewUserRepository(gdb),
		tx:    gormrepo.NewGormUoW(gdb),
		close: sqlDB.Close,
	}, nil
}

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, false)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(cfg)
	if err != nil {
		logger.Error("open storage", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	hub := notify.NewHub()
	var deny auth.Denylist = auth.NewMemoryDenylist()
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Error("connect redis", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		deny = cache.NewRedisDenylist(rdb)
		relay := notify.NewRelay(rdb)
		if err := relay.Start(ctx, hub); err != nil {
			logger.Error("start relay", "err", err)
			os.Exit(1)
		}
		hub.UseRelay(relay)
	}

	authUC := auth.NewUsecase(st.users, st.tx, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), deny)
	if err := authUC.EnsureSeedUsers(ctx); err != nil {
		logger.Error("seed users", "err", err)
		os.Exit(1)
	}

	e := httpadp.NewServer(httpadp.Deps{
		Documents:       docuc.NewUsecase(st.docs, st.tx, hub),
		Auth:            authUC,
		Hub:             hub,
		Redis:           rdb,
		IdempTTL:        time.Duration(cfg.IdempTTLSecs) * time.Second,
		DocsRequireAuth: cfg.DocsRequireAuth,
	})

	addr := ":" + cfg.AppPort
	go func() {
		logger.Info("listening", "addr", addr, "store", cfg.StoreDriver, "redis", rdb != nil)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = hub.Shutdown(shutdownCtx)
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
