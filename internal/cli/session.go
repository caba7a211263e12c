package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// SessionCmd returns the session command group: diagnostics, manual renewal,
// and cookie reseeding from raw browser traffic.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage the booking session",
	}

	cmd.AddCommand(sessionInfoCmd())
	cmd.AddCommand(sessionRenewCmd())
	cmd.AddCommand(sessionImportCmd())

	return cmd
}

func sessionInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the current session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			info := newSessionManager(cfg).Info()

			fmt.Printf("Cookies:            %d (required present: %v)\n", info.CookieCount, info.HasRequired)
			if info.LoginValidUntil != "" {
				fmt.Printf("Login valid until:  %s\n", info.LoginValidUntil)
			}
			if !info.EarliestExpiration.IsZero() {
				fmt.Printf("Expires in:         %s\n", info.TimeUntilExpiration().Round(1e9))
			}
			fmt.Printf("Renewal due:        %v\n", info.RenewalDue)
			return nil
		},
	}
}

func sessionRenewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew",
		Short: "Force one renewal round-trip now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sessions := newSessionManager(cfg)
			if err := sessions.RenewProactively(cmd.Context()); err != nil {
				return fmt.Errorf("renewal failed: %w", err)
			}

			fmt.Printf("Session renewed; %d cookies saved to %s\n",
				sessions.Info().CookieCount, cfg.Path())
			return nil
		},
	}
}

func sessionImportCmd() *cobra.Command {
	var fromResponse bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Reseed cookies from raw HTTP traffic (stdin or file)",
		Long: `Reads raw HTTP request text (a Cookie header, the default) or response
text (Set-Cookie headers, with --response) and merges the cookies it finds
into the stored credential set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read traffic text: %w", err)
			}

			sessions := newSessionManager(cfg)
			var updated bool
			if fromResponse {
				updated = sessions.UpdateCookiesFromResponse(string(data))
			} else {
				updated = sessions.UpdateCookiesFromRequest(string(data))
			}
			if !updated {
				return fmt.Errorf("no cookies found in supplied text")
			}

			if err := cfg.SaveCookies(sessions.CurrentCookies()); err != nil {
				return err
			}
			fmt.Printf("Imported cookies; %d stored in %s\n",
				sessions.Info().CookieCount, cfg.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromResponse, "response", false,
		"treat input as response text (Set-Cookie headers)")

	return cmd
}
