package cli

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"bakaaro-pos/internal/ai"
	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/config"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/handlers"
	"bakaaro-pos/internal/logging"
	"bakaaro-pos/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gorm.io/gorm"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.Provide(func() (*config.Config, error) { return config.Load(opts.ConfigPath) }),
				serverModule(),
				fx.Invoke(func(*http.Server) {}),
			)
			return runApp(cmd.Context(), app)
		},
	}
}

// runApp starts app and blocks until a signal arrives.
func runApp(ctx context.Context, app *fx.App) error {
	if err := app.Start(ctx); err != nil {
		return err
	}
	<-app.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	return app.Stop(stopCtx)
}

// serverModule wires everything below the configuration.
func serverModule() fx.Option {
	return fx.Options(
		fx.Provide(
			logging.New,
			newDatabase,
			auth.NewHasher,
			auth.NewTokenService,
			auth.NewResolver,
			services.NewAuthService,
			services.NewProductService,
			services.NewSaleService,
			services.NewStaffService,
			services.NewBranchService,
			services.NewReportService,
			ai.NewAssistant,
			newRouter,
			newHTTPServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			l := &fxevent.SlogLogger{Logger: logger}
			l.UseLogLevel(slog.LevelDebug)
			return l
		}),
	)
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return errors.WithStack(sqlDB.Close())
		},
	})
	return db, nil
}

type routerParams struct {
	fx.In

	Config    *config.Config
	Logger    *slog.Logger
	Resolver  *auth.Resolver
	Tokens    *auth.TokenService
	Auth      *services.AuthService
	Products  *services.ProductService
	Sales     *services.SaleService
	Staff     *services.StaffService
	Branches  *services.BranchService
	Reports   *services.ReportService
	Assistant *ai.Assistant
}

func newRouter(p routerParams) *gin.Engine {
	if p.Config.Env.Name == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if !p.Assistant.Enabled() {
		p.Logger.Warn("AI assistant disabled: no ai.apiKey configured")
	}

	return handlers.NewRouter(handlers.Deps{
		Config:    p.Config,
		Logger:    p.Logger,
		Resolver:  p.Resolver,
		Tokens:    p.Tokens,
		Auth:      p.Auth,
		Products:  p.Products,
		Sales:     p.Sales,
		Staff:     p.Staff,
		Branches:  p.Branches,
		Reports:   p.Reports,
		Assistant: p.Assistant,
	})
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger, engine *gin.Engine) *http.Server {
	srv := &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(cfg.HTTP.Port)),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.Timeouts.Read,
		WriteTimeout: cfg.HTTP.Timeouts.Write,
		IdleTimeout:  cfg.HTTP.Timeouts.Idle,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", srv.Addr)
			}
			logger.Info("server starting", slog.String("addr", ln.Addr().String()), slog.String("baseUrl", cfg.HTTP.BaseURL))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", slog.String("error", err.Error()))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx := ctx
			if cfg.HTTP.Timeouts.Shutdown > 0 {
				var cancel context.CancelFunc
				shutdownCtx, cancel = context.WithTimeout(ctx, cfg.HTTP.Timeouts.Shutdown)
				defer cancel()
			}
			logger.Info("shutting down server")
			return errors.WithStack(srv.Shutdown(shutdownCtx))
		},
	})
	return srv
}
