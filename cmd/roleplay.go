package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mastertrainer/mt/internal/adapters/render/chat"
	sessionrender "github.com/mastertrainer/mt/internal/adapters/render/session"
	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
	"github.com/spf13/cobra"
)

const demoNotice = "Offline demo session, nothing is sent to the gateway."

func newRoleplayCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "roleplay",
		Aliases: []string{"rp"},
		Short:   "Run a practice session against an AI buyer",
	}

	cmd.AddCommand(
		newRoleplayStartCmd(app),
		newRoleplaySendCmd(app),
		newRoleplayShowCmd(app),
		newRoleplayEndCmd(app),
		newRoleplayFeedbackCmd(app),
		newRoleplayChatCmd(app),
		newRoleplayForgetCmd(app),
	)

	return cmd
}

func newRoleplayStartCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start <scenario-id>",
		Short: "Start a session and make it the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := request(cmd, "Starting session...", func(ctx context.Context) (*application.RoleplayController, error) {
				return app.sessions.Start(ctx, domain.ScenarioID(args[0]))
			})
			if err != nil {
				return err
			}
			defer controller.Close()

			if err := writeSession(cmd, app, controller, ""); err != nil {
				return err
			}
			return writeLine(cmd, "Send messages with `mt roleplay send <text>`, finish with `mt roleplay end`.")
		},
	}
}

func newRoleplaySendCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send one message in the active session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			result, err := request(cmd, "Waiting for the buyer...", func(ctx context.Context) (application.SendResult, error) {
				return app.sessions.Send(ctx, content)
			})
			if err != nil {
				return err
			}

			for _, message := range []domain.Message{result.Exchange.UserMessage, result.Exchange.AIMessage} {
				if err := writeLine(cmd, "%s: %s", sessionrender.RoleLabel(message.Role), message.Content); err != nil {
					return err
				}
			}

			if result.MustEnd {
				return writeLine(cmd, "Turn limit reached, run `mt roleplay end` to finish.")
			}
			return writeLine(cmd, "turns left: %d", result.TurnsRemaining)
		},
	}
}

func newRoleplayShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active session transcript and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			attached, err := request(cmd, "Loading session...", func(ctx context.Context) (attachedSession, error) {
				return attach(ctx, app)
			})
			if err != nil {
				return err
			}
			defer attached.controller.Close()

			if asJSON {
				return writeJSON(cmd, wire.FromSession(attached.controller.Session()))
			}

			notice := ""
			if application.IsDemoSession(attached.active.SessionID) {
				notice = demoNotice
			}
			return writeSession(cmd, app, attached.controller, notice)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

type attachedSession struct {
	controller *application.RoleplayController
	active     ports.ActiveSession
}

func attach(ctx context.Context, app *app) (attachedSession, error) {
	controller, active, err := app.sessions.Attach(ctx)
	if err != nil {
		return attachedSession{}, err
	}
	return attachedSession{controller: controller, active: active}, nil
}

func newRoleplayEndCmd(app *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the active session and request feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirm := func(progress application.Progress) bool {
				if yes {
					return true
				}
				return promptYesNo(cmd, fmt.Sprintf("End the session after %s turns?", progress))
			}

			result, err := app.sessions.End(cmd.Context(), confirm)
			switch {
			case errors.Is(err, domain.ErrEndDeclined):
				return writeLine(cmd, "Session continues.")
			case err != nil:
				return err
			}

			if result.AlreadyEnded {
				return writeLine(cmd, "Session %s already ended.", result.Session.ID)
			}
			return writeLine(cmd, "Session %s ended. Run `mt roleplay feedback --wait` for your scores.", result.Session.ID)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func promptYesNo(cmd *cobra.Command, question string) bool {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)

	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func newRoleplayFeedbackCmd(app *app) *cobra.Command {
	var (
		wait     bool
		interval time.Duration
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Show feedback for the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			timeout := app.config.GetDuration(keyFeedbackTimeout)
			feedback, err := request(cmd, "Waiting for feedback...", func(ctx context.Context) (domain.Feedback, error) {
				return app.sessions.Feedback(ctx, wait, interval, timeout)
			})
			switch {
			case errors.Is(err, domain.ErrFeedbackPending):
				return writeLine(cmd, "Feedback is not ready yet. Try again later or pass --wait.")
			case err != nil:
				return err
			}

			if asJSON {
				return writeJSON(cmd, wire.FromFeedback(feedback))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sessionrender.RenderFeedback(feedback))
			return err
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until feedback is ready")
	cmd.Flags().DurationVar(&interval, "interval", application.DefaultFeedbackInterval, "Polling interval with --wait")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newRoleplayChatCmd(app *app) *cobra.Command {
	var demo bool

	cmd := &cobra.Command{
		Use:   "chat [scenario-id]",
		Short: "Practice interactively; starts a session or continues the active one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := chatController(cmd, app, args, demo)
			if err != nil {
				return err
			}
			defer controller.Close()

			model, err := chat.Run(cmd.Context(), controller, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("run chat: %w", err)
			}

			if !model.Ended() {
				return nil
			}
			if !demo {
				if err := app.sessions.MarkEnded(cmd.Context()); err != nil {
					return err
				}
			}
			return writeLine(cmd, "Session %s ended. Run `mt roleplay feedback --wait` for your scores.", controller.Session().ID)
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "Practice offline against a built-in scenario")

	return cmd
}

func chatController(cmd *cobra.Command, app *app, args []string, demo bool) (*application.RoleplayController, error) {
	if demo {
		scenario := demoScenario(args)
		controller := app.sessions.NewController()
		if _, err := controller.Load(cmd.Context(), application.DemoSessionIDs[0], &scenario); err != nil {
			return nil, err
		}
		return controller, nil
	}

	if len(args) == 1 {
		return request(cmd, "Starting session...", func(ctx context.Context) (*application.RoleplayController, error) {
			return app.sessions.Start(ctx, domain.ScenarioID(args[0]))
		})
	}

	attached, err := request(cmd, "Loading session...", func(ctx context.Context) (attachedSession, error) {
		return attach(ctx, app)
	})
	if err != nil {
		return nil, err
	}
	return attached.controller, nil
}

func demoScenario(args []string) domain.Scenario {
	scenarios := application.DemoScenarios()
	if len(args) == 1 {
		for _, scenario := range scenarios {
			if string(scenario.ID) == args[0] {
				return scenario
			}
		}
	}
	return scenarios[0]
}

func newRoleplayForgetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Forget the active session without ending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sessions.Forget(cmd.Context()); err != nil {
				return err
			}
			return writeLine(cmd, "Active session cleared")
		},
	}
}

func writeSession(cmd *cobra.Command, app *app, controller *application.RoleplayController, notice string) error {
	rendered, err := sessionrender.Render(sessionrender.View{
		Session:  controller.Session(),
		Scenario: controller.Scenario(),
		Progress: controller.Progress(),
		Notice:   notice,
	}, sessionrender.RenderOptions{Now: app.clock.Now()})
	if err != nil {
		return fmt.Errorf("render session: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
