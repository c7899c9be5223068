package cmds

import (
	"edsync/internal/backends"
	"edsync/internal/types"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func ShowCmd() *cobra.Command {
	var siteID int64
	var query string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cached settings of a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := backends.SettingsBackendFromEnv()
			if err != nil {
				return err
			}
			if c, ok := store.(io.Closer); ok {
				defer c.Close()
			}
			doc, err := store.Get(cmd.Context(), siteID)
			if err != nil {
				return err
			}
			if doc == nil {
				return types.Err(types.ErrNotFound, nil, "no cached settings for site %d", siteID)
			}
			var out any = doc.Raw
			if query != "" {
				if out, err = doc.Query(query); err != nil {
					return err
				}
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	cmd.Flags().Int64VarP(&siteID, "site", "s", 0, "local site id")
	cmd.Flags().StringVarP(&query, "query", "q", "", "JMESPath expression to evaluate over the settings")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}
