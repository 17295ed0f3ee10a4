package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	lobby "github.com/dep2p/go-lobby"
	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/backend/memory"
	"github.com/dep2p/go-lobby/pkg/types"
)

// simulateFlags simulate 子命令参数
type simulateFlags struct {
	clients     int
	roomName    string
	duration    time.Duration
	handshake   time.Duration
	metricsAddr string
	lock        bool
}

func newSimulateCmd(root *rootFlags) *cobra.Command {
	flags := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "在进程内模拟一个房主与 N 个客户端的完整会话",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), cfg, flags)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&flags.clients, "clients", "n", 3, "客户端数量")
	f.StringVar(&flags.roomName, "room", "simulated", "房间名称")
	f.DurationVarP(&flags.duration, "duration", "d", 5*time.Second, "游戏中保持的时长")
	f.DurationVar(&flags.handshake, "handshake", 50*time.Millisecond, "回环传输握手延迟")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Prometheus 指标监听地址（如 :9090），为空则不启用")
	f.BoolVar(&flags.lock, "lock", true, "全部客户端加入后锁定房间")
	return cmd
}

func simulate(ctx context.Context, out io.Writer, cfg *config.Config, flags *simulateFlags) error {
	if flags.clients < 0 || flags.clients+1 > cfg.Room.MaxCapacity {
		return fmt.Errorf("clients must be within [0, %d]", cfg.Room.MaxCapacity-1)
	}

	world := memory.NewWorld(memory.WithHandshake(flags.handshake))
	defer world.Close()

	hostOpts := []lobby.Option{lobby.WithConfig(cfg)}
	if flags.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		stopMetrics := serveMetrics(flags.metricsAddr, reg)
		defer stopMetrics()
		hostOpts = append(hostOpts, lobby.WithRegistry(reg))
	}

	host, err := startPlayer(ctx, world, "host", hostOpts...)
	if err != nil {
		return err
	}
	defer host.Close()

	stopReaper := reapStale(world, cfg.Heartbeat.Interval.Duration())
	defer stopReaper()

	if err := host.CreateRoom(ctx, flags.roomName, flags.clients+1); err != nil {
		return fmt.Errorf("host create room: %w", err)
	}
	room := host.Room()
	fmt.Fprintf(out, "room %s created (code %s, relay %s)\n", room.Name, room.JoinCode, room.RelayJoinCode)

	clients := make([]*lobby.Lobby, flags.clients)
	for i := range clients {
		lb, err := startPlayer(ctx, world, fmt.Sprintf("client-%d", i+1), lobby.WithConfig(cfg), lobby.WithMetrics(false))
		if err != nil {
			return err
		}
		defer lb.Close()
		clients[i] = lb
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range clients {
		g.Go(func() error {
			return c.JoinByCode(gctx, room.JoinCode)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("client join: %w", err)
	}
	fmt.Fprintf(out, "%d clients in game\n", len(clients))

	if flags.lock {
		if _, err := host.LockRoom(ctx); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		fmt.Fprintln(out, "room locked")
	}

	select {
	case <-ctx.Done():
	case <-time.After(flags.duration):
	}

	printStatus(out, host, clients)

	ended, err := host.Subscribe(new(types.EvtSessionEnded))
	if err != nil {
		return err
	}
	defer ended.Close()

	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := host.Leave(leaveCtx); err != nil {
		fmt.Fprintf(out, "host leave: %v\n", err)
	}
	select {
	case evt := <-ended.Out():
		fmt.Fprintf(out, "host session ended: %s\n", evt.(types.EvtSessionEnded).Reason)
	case <-time.After(time.Second):
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, c := range clients {
		for c.State() != types.StateDisconnected && time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
		}
	}
	printStatus(out, host, clients)
	return nil
}

func startPlayer(ctx context.Context, world *memory.World, profile string, opts ...lobby.Option) (*lobby.Lobby, error) {
	p := world.NewPlayer()
	opts = append(opts, lobby.WithBackends(p.Backends), lobby.WithProfile(profile))
	lb, err := lobby.Start(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", profile, err)
	}
	return lb, nil
}

func printStatus(out io.Writer, host *lobby.Lobby, clients []*lobby.Lobby) {
	fmt.Fprintf(out, "  %-10s %s\n", "host", host.State())
	for i, c := range clients {
		fmt.Fprintf(out, "  %-10s %s\n", fmt.Sprintf("client-%d", i+1), c.State())
	}
}

// reapStale 周期性回收失去心跳的房间（三个心跳间隔）
func reapStale(world *memory.World, interval time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if ids := world.Directory.ReapStale(3 * interval); len(ids) > 0 {
					log.Info("回收房间", "rooms", ids)
				}
			}
		}
	}()
	return func() { close(done) }
}

// serveMetrics 启动 Prometheus 指标 HTTP 服务
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("指标服务退出", "addr", addr, "error", err)
		}
	}()
	log.Info("指标服务已启动", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
