package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/gateway"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/permission"
)

var (
	askIdentity   string
	askSession    string
	askRestricted bool
	askBMS        bool
	askETEQ       bool
	askWeb        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message through the gateway and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askIdentity, "identity", "", "caller identity (IP or user id); empty is anonymous")
	askCmd.Flags().StringVar(&askSession, "session", "", "existing session id to continue")
	askCmd.Flags().BoolVar(&askRestricted, "restricted", false, "force restricted mode")
	askCmd.Flags().BoolVar(&askBMS, "bms", false, "building-management mode")
	askCmd.Flags().BoolVar(&askETEQ, "eteq", false, "ETEQ mode")
	askCmd.Flags().BoolVar(&askWeb, "web", false, "allow web search for this turn")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	mode := permission.Mode{
		Restricted:         askRestricted,
		BMS:                askBMS,
		ETEQ:               askETEQ,
		WebSearchRequested: askWeb,
	}

	// A remembered grant for this identity takes effect unless the flags
	// already force a mode.
	if !mode.Restricted && !mode.BMS && askIdentity != "" {
		if state, ok := a.states.Lookup(ctx, askIdentity); ok {
			mode.Restricted = state.Restricted
			mode.BMS = state.BMS
		}
	}

	reply, err := a.service.Ask(ctx, gateway.AskParams{
		Identity:  askIdentity,
		SessionID: askSession,
		Message:   strings.Join(args, " "),
		Mode:      mode,
	})
	if err != nil {
		return err
	}

	fmt.Println(reply.Text)
	if len(reply.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range reply.Sources {
			fmt.Printf("  %s (%s)\n", src.Title, src.URL)
		}
	}
	fmt.Printf("\nsession: %s\n", reply.SessionID)
	return nil
}
