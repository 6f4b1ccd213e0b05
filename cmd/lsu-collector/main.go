package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/league-stream-utils/lsu-assets/internal/collector"
	"github.com/league-stream-utils/lsu-assets/internal/config"
	"github.com/league-stream-utils/lsu-assets/internal/logging"
	"github.com/league-stream-utils/lsu-assets/internal/version"
)

// errStoreLost 对应退出码 3，便于外部脚本区分 “数据库丢失” 与普通失败。
var errStoreLost = errors.New("store lost")

type collectorFlags struct {
	configPath string
	dbPath     string
	endpoint   string
	interval   time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdin, os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errStoreLost) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	flags := &collectorFlags{}

	cmd := &cobra.Command{
		Use:          "lsu-collector [match-id]",
		Short:        "Poll the live client for the active player and store snapshots",
		Version:      version.Tool("lsu-collector"),
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID := ""
			if len(args) == 1 {
				matchID = strings.TrimSpace(args[0])
			}
			if matchID == "" {
				var err error
				matchID, err = promptMatchID(in, out)
				if err != nil {
					return err
				}
			}
			return runCollector(cmd.Context(), flags, matchID)
		},
	}

	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.Flags().StringVar(&flags.configPath, "config", os.Getenv("LSU_ASSETS_CONFIG"), "config file (optional)")
	cmd.Flags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides Collector.DatabasePath)")
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", "", "live client endpoint (overrides Collector.Endpoint)")
	cmd.Flags().DurationVar(&flags.interval, "interval", 0, "poll interval (overrides Collector.PollInterval)")
	return cmd
}

// promptMatchID 从标准输入读取一行作为比赛 ID。
func promptMatchID(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter Match ID: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read match id: %w", err)
	}
	matchID := strings.TrimSpace(line)
	if matchID == "" {
		return "", errors.New("match id is required")
	}
	return matchID, nil
}

// loadCollectorConfig 加载配置并叠加命令行覆盖项。
func loadCollectorConfig(flags *collectorFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.dbPath != "" {
		cfg.Collector.DatabasePath = flags.dbPath
	}
	if flags.endpoint != "" {
		cfg.Collector.Endpoint = flags.endpoint
	}
	if flags.interval > 0 {
		cfg.Collector.PollInterval = config.Duration(flags.interval)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCollector(ctx context.Context, flags *collectorFlags, matchID string) error {
	cfg, err := loadCollectorConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dbPath := cfg.Collector.DatabasePath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}

	// 同一数据库文件只允许一个采集进程。
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another collector is already writing to %s", dbPath)
	}
	defer lock.Unlock()

	store, err := collector.OpenSQLiteStore(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := collector.OptionsFromConfig(cfg.Collector)
	opts.Source = collector.NewLiveClient(cfg.Collector)
	opts.Store = store
	opts.Logger = logger
	opts.MatchID = matchID

	c, err := collector.New(opts)
	if err != nil {
		return err
	}

	fields := logging.BaseFields("collector_startup", flags.configPath)
	fields["match_id"] = matchID
	fields["database"] = dbPath
	fields["endpoint"] = cfg.Collector.Endpoint
	fields["version"] = version.Tool("lsu-collector")
	logger.WithFields(fields).Info("collector ready")

	if err := c.Run(ctx); err != nil {
		if errors.Is(err, collector.ErrStoreUnavailable) {
			return fmt.Errorf("%w: %v", errStoreLost, err)
		}
		return err
	}
	return nil
}
