package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/league-stream-utils/lsu-assets/internal/assets"
	"github.com/league-stream-utils/lsu-assets/internal/cache"
	"github.com/league-stream-utils/lsu-assets/internal/config"
	"github.com/league-stream-utils/lsu-assets/internal/localimage"
	"github.com/league-stream-utils/lsu-assets/internal/logging"
	"github.com/league-stream-utils/lsu-assets/internal/server"
	"github.com/league-stream-utils/lsu-assets/internal/server/routes"
	"github.com/league-stream-utils/lsu-assets/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr

	// shutdownTimeout 限制收到信号后等待进行中请求完成的时间。
	shutdownTimeout = 5 * time.Second
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
// ctx 结束时服务优雅退出。
func run(ctx context.Context, opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["asset_root"] = cfg.Global.AssetRoot
		fields["listen_addr"] = cfg.Global.ListenAddr()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序为“配置 → 资源目录 → 缓存/清理任务 → Fiber server”，
	// 所有请求共享同一个缓存实例。
	if err := os.MkdirAll(cfg.Global.AssetRoot, 0o755); err != nil {
		fmt.Fprintf(stdErr, "初始化资源目录失败: %v\n", err)
		return 1
	}

	resolver, err := assets.NewResolver(cfg.Global.AssetRoot)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化路径解析失败: %v\n", err)
		return 1
	}

	cacheSvc := cache.New(cache.Options{
		ExistenceTTL:      cfg.Global.ExistenceTTL.DurationValue(),
		ContentTTL:        cfg.Global.ContentTTL.DurationValue(),
		MaxContentEntries: cfg.Global.MaxContentEntries,
	})

	handler, err := localimage.NewHandler(localimage.Options{
		Logger:          logger,
		Resolver:        resolver,
		Cache:           cacheSvc,
		MaxInMemorySize: cfg.Global.MaxContentFileSize,
		ChunkSize:       cfg.Global.StreamChunkSize,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化请求处理失败: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	janitor := cache.NewJanitor(cacheSvc, cfg.Global.EffectiveJanitorInterval(), logger)
	go janitor.Run(ctx)

	if cfg.Global.WatchAssets {
		startWatcher(ctx, resolver.Root(), cacheSvc, logger)
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["asset_root"] = resolver.Root()
	fields["listen_addr"] = cfg.Global.ListenAddr()
	fields["watch_assets"] = cfg.Global.WatchAssets
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(ctx, cfg, handler, cacheSvc, resolver.Root(), logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// startWatcher 监听资源目录；失败时仅记录日志，缓存仍依靠 TTL 保持正确。
func startWatcher(ctx context.Context, root string, target cache.Invalidator, logger *logrus.Logger) {
	watcher, err := cache.NewWatcher(root, target, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"action": "asset_watch",
			"root":   root,
		}).WithError(err).Warn("资源目录监听不可用")
		return
	}
	go watcher.Run(ctx)
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
// 未指定配置文件时仅使用默认值与环境变量。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("lsu-assets", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（可选，可被 LSU_ASSETS_CONFIG 指定）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("LSU_ASSETS_CONFIG")
	if configFlag != "" {
		path = configFlag
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(
	ctx context.Context,
	cfg *config.Config,
	images server.ImageHandler,
	stats routes.StatsProvider,
	assetRoot string,
	logger *logrus.Logger,
) error {
	app, err := server.NewApp(server.AppOptions{
		Logger: logger,
		Images: images,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticsRoutes(app, routes.DiagnosticsOptions{
		AssetRoot: assetRoot,
		Version:   version.Full(),
		StartedAt: time.Now(),
		Cache:     stats,
	})

	addr := cfg.Global.ListenAddr()
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   addr,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.WithField("action", "shutdown").Info("收到退出信号，停止服务")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}

// printVersion 输出注入的版本 + 提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
