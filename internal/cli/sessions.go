package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/KirkDiggler/applebot/internal/config"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/session"
	"github.com/spf13/cobra"
)

// ErrRedisNotConfigured is returned when session history is requested without a store
var ErrRedisNotConfigured = errors.New("REDIS_ADDR is required to read session history")

// SessionsOptions holds flags for the sessions command
type SessionsOptions struct {
	*RootOptions
	Limit  int
	Active bool
}

// NewSessionsCommand creates the command that prints recorded gateway sessions
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded gateway sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			redisCfg, err := config.LoadRedis()
			if err != nil {
				return err
			}
			if !redisCfg.Enabled() {
				return ErrRedisNotConfigured
			}

			redisClient := newRedisClient(redisCfg)
			defer redisClient.Close()

			repo, err := session.NewRedis(&session.Config{
				RedisClient: redisClient,
			})
			if err != nil {
				return err
			}

			return printSessions(cmd.Context(), repo, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of sessions to list")
	cmd.Flags().BoolVar(&opts.Active, "active", false, "show only the live session")

	return cmd
}

func printSessions(ctx context.Context, repo session.Repository, opts *SessionsOptions, out io.Writer) error {
	var sessions []*models.GatewaySession

	if opts.Active {
		active, err := repo.GetActiveSession(ctx)
		if errors.Is(err, session.ErrSessionNotFound) {
			fmt.Fprintln(out, "No active session")
			return nil
		}
		if err != nil {
			return err
		}
		sessions = append(sessions, active)
	} else {
		if opts.Limit <= 0 {
			return fmt.Errorf("limit must be positive, got %d", opts.Limit)
		}

		listed, err := repo.ListSessions(ctx, &session.ListSessionsInput{Limit: opts.Limit})
		if err != nil {
			return err
		}
		sessions = listed.Sessions
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tGENERATION\tUSER\tGUILDS\tSTARTED\tENDED")
	for _, s := range sessions {
		ended := "active"
		if !s.Active {
			ended = s.EndedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\n",
			s.ID, s.Generation, s.UserID, s.GuildCount, s.StartedAt.UTC().Format(time.RFC3339), ended)
	}
	return w.Flush()
}
