package cmds

import (
	"context"
	"edsync/internal/app"
	"edsync/internal/flow"
	"edsync/internal/types"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func fetchCommand(siteID int64, skip bool) flow.Command {
	return flow.Command{
		Kind:                      types.FetchEditorSettings,
		SiteID:                    siteID,
		SkipNetworkIfCachePresent: skip,
	}
}

func FetchCmd() *cobra.Command {
	var siteID int64
	var skip bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Reconcile one site (or all with --site 0) and print the change events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			if err := a.Subscribe(ctx, "stdout", printEvents(cmd.OutOrStdout())); err != nil {
				a.Close()
				return err
			}

			ids := []int64{siteID}
			if siteID == 0 {
				ids = ids[:0]
				for _, s := range cfg.Sites {
					ids = append(ids, s.ID)
				}
			}
			for _, id := range ids {
				if err := a.Dispatcher.Go(ctx, fetchCommand(id, skip)); err != nil {
					a.Close()
					return err
				}
			}
			a.Close()
			return nil
		},
	}
	cmd.Flags().Int64VarP(&siteID, "site", "s", 0, "local site id (0 for every configured site)")
	cmd.Flags().BoolVar(&skip, "skip-if-cached", false, "do not hit the network when settings are cached")
	return cmd
}

// printEvents writes each event as one JSON line.
func printEvents(w io.Writer) func(context.Context, types.ChangeEvent) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(_ context.Context, evt types.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(evt); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
