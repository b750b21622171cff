package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/apiserver"
	"github.com/quarrydirect/portal/internal/apiserver/handler"
	"github.com/quarrydirect/portal/internal/approval"
	"github.com/quarrydirect/portal/internal/auth"
	"github.com/quarrydirect/portal/internal/common/config"
	"github.com/quarrydirect/portal/internal/database"
	"github.com/quarrydirect/portal/internal/otp"
	"github.com/quarrydirect/portal/internal/permission"
	"github.com/quarrydirect/portal/internal/session"
	"github.com/quarrydirect/portal/internal/sms"
	"github.com/quarrydirect/portal/pkg/logger"
	"github.com/quarrydirect/portal/pkg/metrics"
	"github.com/quarrydirect/portal/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of identity",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("identity version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "identity",
		Short: "Portal identity server",
		Long:  `Portal identity server provides authentication, sessions and authorization for the customer portal`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/identity.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting identity server",
		zap.String("version", version.Get()),
		zap.String("database", cfg.Database.Type),
		zap.String("session_store", cfg.Session.Type))

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	sessionStore, err := session.NewStore(zapLogger, &cfg.Session)
	if err != nil {
		zapLogger.Fatal("failed to initialize session store", zap.Error(err))
	}
	sessions := session.NewManager(zapLogger, sessionStore, cfg.Session.TTL)

	otpStore, err := otp.NewStore(zapLogger, &cfg.OTP)
	if err != nil {
		zapLogger.Fatal("failed to initialize otp store", zap.Error(err))
	}

	sender, err := sms.NewSender(zapLogger, &cfg.SMS)
	if err != nil {
		zapLogger.Fatal("failed to initialize sms sender", zap.Error(err))
	}

	engine := otp.NewEngine(zapLogger, otpStore, sender, auth.NewPhoneLookup(db), cfg.OTP)
	resolver := permission.NewResolver(zapLogger, db)
	workflow := approval.NewWorkflow(zapLogger, db)
	authSvc := auth.NewService(zapLogger, db, sessions, resolver, engine)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	handlers := handler.NewHandler(zapLogger, db, authSvc, workflow, resolver, m)
	srv := apiserver.NewServer(zapLogger, cfg, handlers, sessions, db, resolver, m)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-quit:
		zapLogger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			zapLogger.Error("failed to shutdown server", zap.Error(err))
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
