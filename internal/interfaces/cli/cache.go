package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/pkg/errors"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the lookup cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "invalidate",
		Short: "Drop every cached lookup and query response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cc.App.Cached == nil {
				return errors.New(errors.ErrCodeServiceUnavailable, "redis cache is not enabled")
			}
			ctx, cancel := operationContext(cmd, cc)
			defer cancel()
			n, err := cc.App.Cached.Invalidate(ctx)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("removed %d cache entries", n))
			return nil
		},
	})
	return cmd
}
