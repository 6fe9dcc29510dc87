package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"gemnet/internal/capture"
	"gemnet/internal/platform/config"
	"gemnet/internal/platform/logger"
	"gemnet/internal/platform/redisclient"
	"gemnet/internal/registration/gateway"
	"gemnet/internal/registration/metrics"
	"gemnet/internal/registration/models"
	"gemnet/internal/registration/orchestrator"
	"gemnet/internal/registration/ports"
	"gemnet/internal/registration/service"
	"gemnet/internal/registration/store"
	"gemnet/pkg/platform/audit"
	"gemnet/pkg/platform/circuit"
)

// app holds everything a command needs once the flow is wired up. Progress
// persists across invocations through the selected store, so each command
// hydrates, acts, and exits.
type app struct {
	controller *service.Controller
	gateway    *gateway.Client
	metrics    *metrics.Metrics
	log        *slog.Logger
	close      func()
}

func newRootCmd() *cobra.Command {
	var (
		gatewayURL  string
		stateDir    string
		redisURL    string
		postgresURL string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "GemNet seller onboarding client",
		Long: `Walks the three-step GemNet seller registration: personal
information, face verification, and NIC verification. Progress is saved
between invocations so the flow can be resumed where it left off.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "", "verification gateway base URL (default from GEMNET_GATEWAY_URL)")
	cmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory for saved progress (default from GEMNET_STATE_DIR)")
	cmd.PersistentFlags().StringVar(&redisURL, "redis", "", "save progress in redis instead of a file (default from GEMNET_REDIS_URL)")
	cmd.PersistentFlags().StringVar(&postgresURL, "postgres", "", "save progress in postgres instead of a file (default from GEMNET_POSTGRES_URL)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store and gateway activity")

	setup := func(ctx context.Context) (*app, error) {
		overrides := config.Client{
			GatewayURL:  gatewayURL,
			StateDir:    stateDir,
			RedisURL:    redisURL,
			PostgresURL: postgresURL,
		}
		return buildApp(ctx, overrides, verbose)
	}

	cmd.AddCommand(
		newStatusCmd(setup),
		newRegisterCmd(setup),
		newVerifyFaceCmd(setup),
		newVerifyNICCmd(setup),
		newResetCmd(setup),
	)
	return cmd
}

func buildApp(ctx context.Context, overrides config.Client, verbose bool) (*app, error) {
	cfg := config.ClientFromEnv()
	if overrides.GatewayURL != "" {
		cfg.GatewayURL = overrides.GatewayURL
	}
	if overrides.StateDir != "" {
		cfg.StateDir = overrides.StateDir
	}
	if overrides.RedisURL != "" {
		cfg.RedisURL = overrides.RedisURL
	}
	if overrides.PostgresURL != "" {
		cfg.PostgresURL = overrides.PostgresURL
	}

	log := logger.New()
	if !verbose {
		log = logger.Discard()
	}

	closeFn := func() {}
	var progress ports.ProgressStore

	switch {
	case cfg.PostgresURL != "":
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pg := store.NewPostgres(db, store.WithPostgresLogger(log))
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare postgres schema: %w", err)
		}
		progress = pg
		closeFn = func() { _ = db.Close() }
	case cfg.RedisURL != "":
		client, err := redisclient.New(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		progress = store.NewRedis(client.Client, store.WithRedisLogger(log))
		closeFn = func() { _ = client.Close() }
	default:
		fs, err := store.NewFile(cfg.StateDir, store.WithFileLogger(log))
		if err != nil {
			return nil, fmt.Errorf("open state directory: %w", err)
		}
		progress = fs
	}

	gw, err := gateway.New(cfg.GatewayURL,
		gateway.WithLogger(log),
		gateway.WithTimeout(cfg.GatewayTimeout),
		gateway.WithBreaker(circuit.New("verification-gateway", circuit.WithFailureThreshold(3))),
	)
	if err != nil {
		closeFn()
		return nil, err
	}

	m := metrics.New()

	// A CLI invocation has no async hydration race: the store answers
	// before the first command runs, so the settle window collapses to
	// zero and guard decisions are immediate.
	controller, err := service.New(progress, gw,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithSettleWindow(0),
	)
	if err != nil {
		closeFn()
		return nil, err
	}
	controller.Hydrate(ctx)

	return &app{controller: controller, gateway: gw, metrics: m, log: log, close: closeFn}, nil
}

func newStatusCmd(setup func(context.Context) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show saved registration progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			session := a.controller.Session()
			printStatus(cmd, session)

			if err := a.gateway.Health(cmd.Context()); err != nil {
				ports.LogAudit(cmd.Context(), a.log, nil, audit.Event{
					Action: string(audit.EventGatewayUnhealthy),
					UserID: a.controller.UserID(),
				}, "reason", err.Error())
				cmd.Printf("Gateway:  unreachable (%v)\n", err)
			} else {
				cmd.Println("Gateway:  healthy")
			}
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, session models.Session) {
	mark := func(done bool) string {
		if done {
			return "[x]"
		}
		return "[ ]"
	}
	cmd.Printf("%s Step 1: personal information\n", mark(session.PersonalInfoCompleted))
	cmd.Printf("%s Step 2: face verification\n", mark(session.FaceVerificationCompleted))
	cmd.Printf("%s Step 3: NIC verification\n", mark(session.NicVerificationCompleted))
	if session.CurrentStep == models.StepComplete {
		cmd.Println("Registration complete.")
		return
	}
	cmd.Printf("Next:     %s\n", session.EarliestIncompleteStep())
}

func newRegisterCmd(setup func(context.Context) (*app, error)) *cobra.Command {
	var info models.PersonalInfo

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Submit personal information (step 1)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := requireStep(cmd.Context(), a.controller, models.StepPersonalInfo); err != nil {
				return err
			}

			userID, err := a.controller.SubmitPersonalInfo(cmd.Context(), info)
			if err != nil {
				return err
			}
			cmd.Printf("Registered. User ID: %s\n", userID)
			cmd.Println("Next: onboard verify-face <image>")
			return nil
		},
	}

	cmd.Flags().StringVar(&info.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&info.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&info.Email, "email", "", "email address")
	cmd.Flags().StringVar(&info.Password, "password", "", "password (min 8 chars, upper, lower, digit)")
	cmd.Flags().StringVar(&info.PhoneNumber, "phone", "", "phone number (+94xxxxxxxxx)")
	cmd.Flags().StringVar(&info.Address, "address", "", "postal address")
	cmd.Flags().StringVar(&info.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&info.NICNumber, "nic", "", "NIC number (123456789V or 123456789012)")
	return cmd
}

func newVerifyFaceCmd(setup func(context.Context) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-face <image>",
		Short: "Submit a face photo (step 2)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := requireStep(cmd.Context(), a.controller, models.StepFaceVerification); err != nil {
				return err
			}

			image, err := capture.NewFileAdapter().FromPath(args[0])
			if err != nil {
				return err
			}
			if err := a.controller.SubmitFaceCapture(cmd.Context(), image); err != nil {
				return err
			}
			cmd.Println("Face verified.")
			cmd.Println("Next: onboard verify-nic <image>")
			return nil
		},
	}
}

func newVerifyNICCmd(setup func(context.Context) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-nic <image>",
		Short: "Submit a NIC photo and watch verification progress (step 3)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := requireStep(cmd.Context(), a.controller, models.StepNicVerification); err != nil {
				return err
			}

			image, err := capture.NewFileAdapter().FromPath(args[0])
			if err != nil {
				return err
			}

			orch, err := orchestrator.New(a.controller, a.gateway,
				orchestrator.WithMetrics(a.metrics),
			)
			if err != nil {
				return err
			}
			events, err := orch.Verify(cmd.Context(), image)
			if err != nil {
				return err
			}

			for ev := range events {
				switch ev.Status {
				case orchestrator.StatusInProgress:
					cmd.Printf("[%3d%%] %s\n", ev.Percent, ev.Message)
				case orchestrator.StatusSuccess:
					cmd.Println("NIC verified. Finalizing...")
				case orchestrator.StatusFailed:
					printFailure(cmd, ev.Failure)
				case orchestrator.StatusAcknowledged:
					cmd.Println("Registration complete. Welcome to GemNet.")
				}
			}
			return nil
		},
	}
}

func printFailure(cmd *cobra.Command, failure *models.NICFailure) {
	if failure == nil {
		return
	}
	cmd.Printf("Verification failed (%s): %s\n", failure.Code, failure.Message)
	for _, s := range failure.Suggestions {
		cmd.Printf("  - %s\n", s)
	}
	cmd.Println("Run verify-nic again with a better image.")
}

func newResetCmd(setup func(context.Context) (*app, error)) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard saved progress and start over",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("this discards all saved progress; re-run with --yes to confirm")
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			a.controller.ResetSession(cmd.Context())
			cmd.Println("Progress cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

// requireStep turns a guard refusal into a friendly redirect message instead
// of a raw gateway error later in the flow.
func requireStep(ctx context.Context, controller *service.Controller, step models.Step) error {
	decision := controller.GuardStepAccess(ctx, step)
	if decision.Allowed() {
		return nil
	}
	return fmt.Errorf("%s is not available yet; next step is %s", step, decision.Target)
}

