package main

import (
	"github.com/hatlonely/rooster/cfg"
	"github.com/hatlonely/rooster/log"
	"github.com/hatlonely/rooster/log/logger"
	"github.com/hatlonely/rooster/rdb/database"
	"github.com/hatlonely/rooster/rdb/repository"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RootOptions 所有子命令共享的参数
type RootOptions struct {
	Config string
}

// Config 配置文件结构，compile 只读取 repository 部分
type Config struct {
	Repository repository.Options `cfg:"repository"`
	Database   database.Options   `cfg:"database"`
	Log        logger.SLogOptions `cfg:"log"`
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rooster",
		Short:         "Inspect and query tables through dialect grammars",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "rooster.yaml", "config file (json, yaml, toml, ini)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))

	return cmd
}

func loadRepositoryOptions(filename string) (*repository.Options, error) {
	c, err := cfg.NewConfig(filename)
	if err != nil {
		return nil, err
	}
	var options repository.Options
	if err := c.Sub("repository").ConvertTo(&options); err != nil {
		return nil, err
	}
	return &options, nil
}

// loadConfig 读取完整配置并替换默认日志器
func loadConfig(filename string) (*Config, error) {
	var config Config
	if err := cfg.Load(filename, &config); err != nil {
		return nil, err
	}
	l, err := log.New(&config.Log)
	if err != nil {
		return nil, errors.WithMessage(err, "create logger failed")
	}
	log.SetDefault(l)
	return &config, nil
}
