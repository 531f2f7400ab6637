package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/psantana5/promptmesh/internal/mockapi"
	"github.com/psantana5/promptmesh/pkg/logging"
)

var (
	mockPort         string
	mockStepInterval time.Duration
	mockSteps        int
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run a local stub backend",
	Long: `Serve a local stub implementing the full server contract: canned
tasks, versions and models, simulated job progress, deterministic
results, and a Prometheus /metrics endpoint. Useful for development
and demos without a real backend.`,
	RunE: runMock,
}

func init() {
	rootCmd.AddCommand(mockCmd)

	mockCmd.Flags().StringVar(&mockPort, "port", "8000", "port to listen on")
	mockCmd.Flags().DurationVar(&mockStepInterval, "step-interval", time.Second, "how often simulated jobs advance")
	mockCmd.Flags().IntVar(&mockSteps, "steps", 4, "progress steps before a job completes")
}

func runMock(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.INFO, false)

	handler := mockapi.NewHandler(logger,
		mockapi.WithStepInterval(mockStepInterval),
		mockapi.WithSteps(mockSteps),
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         ":" + mockPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("Stub backend listening on :%s\n", mockPort)
	fmt.Println("Endpoints: /api/health /api/tasks /api/models /api/evaluate /api/compare /api/evolve /api/test-cases/generate /api/jobs/{id} /metrics")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-sigCh:
	}

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
