package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dep2p/go-lobby/internal/backend/redisdir"
	"github.com/dep2p/go-lobby/pkg/types"
)

func newRoomsCmd(flags *rootFlags) *cobra.Command {
	var (
		limit int
		reap  bool
	)
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "列出 Redis 房间目录中的可加入房间",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled() {
				return fmt.Errorf("redis address not configured (set redis.addr or LOBBY_REDIS_ADDR)")
			}

			ctx := cmd.Context()
			dir, err := redisdir.Open(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			defer dir.Close()

			if reap {
				reaped, err := dir.ReapStale(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "reaped %d stale rooms\n", len(reaped))
			}

			rooms, err := dir.List(ctx, types.QueryOptions{MinAvailableSlots: 1, Limit: limit})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPLAYERS\tAGE")
			for _, r := range rooms {
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\n",
					r.ID, r.Name, r.PlayerCount, r.Capacity,
					time.Since(r.CreatedAt).Truncate(time.Second))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "最多列出的房间数")
	cmd.Flags().BoolVar(&reap, "reap", false, "列出前回收失去心跳的房间")
	return cmd
}
