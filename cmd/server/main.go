package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/logging"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/repository/memory"
	"github.com/iliyamo/cinema-ticketing/internal/repository/mysql"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

func main() {
	cfg := config.Load()
	format := cfg.LogFormat
	if format == "" && !cfg.DevMode() {
		format = "json"
	}
	logging.Init(cfg.LogLevel, format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	opts := []booking.Option{
		booking.WithUpdateRetries(cfg.Ledger.UpdateRetries),
		booking.WithDefaultPaymentMethod(model.PaymentMethod(cfg.Ledger.DefaultPaymentMethod)),
	}
	if cfg.Events.Enabled {
		pub := service.NewQueuePublisher(cfg.Events.URL)
		defer pub.Close()
		opts = append(opts, booking.WithPublisher(pub))
	}
	ledger := booking.New(store, opts...)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb)
	sweeper := booking.NewSweeper(ledger, cfg.Ledger.ReservationTTL, cfg.Ledger.SweepInterval,
		booking.OnSeatsReleased(func(ctx context.Context, showingID uint64) {
			if err := cache.Invalidate(ctx, handler.SeatMapPath(showingID)); err != nil {
				logging.FromContext(ctx).WithError(err).WithField("showing_id", showingID).Warn("seat map cache invalidation failed")
			}
		}))

	e := echo.New()
	e.HideBanner = true
	h := handler.NewBookingHandler(ledger, cache)
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, pinger)
	router.RegisterPublic(e, h, cache)
	router.RegisterCustomer(e, h, cfg.JWTSecret, limiter)
	router.RegisterOwnerReservations(e, h, cfg.JWTSecret)
	router.RegisterPayments(e, h, cfg.JWTSecret)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.Store}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if sweeper.Enabled() {
		g.Go(func() error {
			if err := sweeper.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return sweeper.Stop()
		})
	}
	if cfg.Events.Enabled {
		g.Go(func() error {
			return queue.NewAuditConsumer(cfg.Events.URL, "").Run(ctx)
		})
	}
	return g.Wait()
}

// openStore returns the configured storage backend.  The *sql.DB is nil for
// the memory store.
func openStore(ctx context.Context, cfg config.Config) (repository.Store, *sql.DB, error) {
	if cfg.Store == config.StoreMemory {
		st := memory.New()
		st.SeedDemo(time.Now())
		logrus.Warn("using in-memory store with demo data; nothing is persisted")
		return st, nil, nil
	}
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return mysql.NewStore(db), db, nil
}
