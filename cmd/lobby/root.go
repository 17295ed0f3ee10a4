package main

import (
	"fmt"

	"github.com/spf13/cobra"

	lobby "github.com/dep2p/go-lobby"
	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/util/logger"
)

var log = logger.Logger("cmd/lobby")

// rootFlags 全局参数
type rootFlags struct {
	configFile string
	preset     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "lobby",
		Short:         "多人游戏会话编排工具",
		Version:       lobby.VersionInfo(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if flags.logLevel == "" {
				return nil
			}
			level, ok := logger.ParseLevel(flags.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", flags.logLevel)
			}
			logger.SetGlobalLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "配置文件路径（.json/.yaml）")
	pf.StringVar(&flags.preset, "preset", lobby.PresetNameDefault, "预设配置 (default/local/test)")
	pf.StringVar(&flags.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")

	cmd.AddCommand(
		newSimulateCmd(flags),
		newRoomsCmd(flags),
		newConfigCmd(flags),
	)
	return cmd
}

// loadConfig 合成配置：默认值 / 配置文件 → 预设 → 环境变量
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	preset := lobby.PresetByName(f.preset)
	if preset == nil {
		return nil, fmt.Errorf("unknown preset %q", f.preset)
	}
	preset.Apply(cfg)

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
