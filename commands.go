package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vgnam/Library-Management-System-sub000/handlers"
	"github.com/vgnam/Library-Management-System-sub000/services"
	"github.com/vgnam/Library-Management-System-sub000/utils"
	"github.com/vgnam/Library-Management-System-sub000/workers"
)

const shutdownTimeout = 15 * time.Second

var (
	noSweep  bool
	autoInit bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the notification hub and the sweeper",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.InitSchema(cmd.Context()); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
		logger.Info("schema ready")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default staff accounts, publishers and categories",
	Long: `Creates the default librarian and manager accounts plus reference
publishers and categories. Existing rows are left alone, so it is safe to
run more than once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, svc, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer st.Close()
		rep, err := services.Seed(cmd.Context(), svc.Env)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "librarians=%d managers=%d publishers=%d categories=%d\n",
			rep.Librarians, rep.Managers, rep.Publishers, rep.Categories)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one infraction, fine and reminder pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, svc, err := openStore(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer st.Close()
		rep, err := workers.NewSweeper(svc, cfg.Library.SweepInterval, logger.Named("sweeper")).SweepOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "infractions=%d blocked=%d fines_created=%d fines_updated=%d reminders=%d\n",
			rep.Infractions.InfractionsAdded, rep.Infractions.CardsBlocked,
			rep.Penalties.Created, rep.Penalties.Updated,
			rep.Reminders.DueTomorrow+rep.Reminders.Overdue)
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run the background sweeper")
	serveCmd.Flags().BoolVar(&autoInit, "init-schema", true, "create missing tables on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	hub := utils.NewHub(logger.Named("hub"))

	st, svc, err := openStore(ctx, hub)
	if err != nil {
		return err
	}
	defer st.Close()

	if autoInit {
		if err := st.InitSchema(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Services:     svc,
			Tokens:       svc.Auth.Tokens,
			Hub:          hub,
			Logger:       logger.Named("http"),
			Prefix:       cfg.Server.APIPrefix,
			CORSOrigins:  cfg.Server.CORSOrigins,
			SecureCookie: cfg.Server.SecureCookie,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if !noSweep {
		sweeper := workers.NewSweeper(svc, cfg.Library.SweepInterval, logger.Named("sweeper"))
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("prefix", cfg.Server.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
