package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/tomatoapi/internal/app/query"
	"github.com/John-Robertt/tomatoapi/internal/config"
	"github.com/John-Robertt/tomatoapi/internal/infra/httpx"
	"github.com/John-Robertt/tomatoapi/internal/logger"
	"github.com/John-Robertt/tomatoapi/internal/provider/rottentomatoes"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError 携带进程退出码：1 表示查询/运行失败，2 表示参数或配置错误。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	c.close()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		fmt.Fprintln(stderr, ee.err)
		return ee.code
	}
	// cobra 自身的参数错误：未知命令/flag、参数个数不对等。
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return 2
}

// cli 持有一次命令执行期间共享的配置、logger 与输出目标。
type cli struct {
	stdout, stderr io.Writer

	configPath string
	envFile    string

	cfg *config.Config
	log *logger.Logger
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tomatoapi",
		Short: "Rotten Tomatoes 电影信息查询（抓取 + JSON API）",
		Long: `tomatoapi 通过抓取 Rotten Tomatoes 的搜索页与电影详情页，输出结构化的电影信息。

它既可以作为 HTTP 服务运行（serve），也可以直接在命令行查询（movie / search），
并提供内置代理列表的可用性探测（proxies）。`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "配置文件路径（默认查找 ./config.yaml 与 $HOME/.tomatoapi/config.yaml）")
	pf.StringVar(&c.envFile, "env-file", ".env", "启动前加载的 .env 文件（不存在时忽略）")
	pf.String("log-level", "", "日志级别：trace|debug|info|warn|error")
	pf.String("log-format", "", "日志格式：console|json")
	pf.String("proxy", "", "抓取使用的代理（host:port 或 http://host:port）")
	pf.String("base-url", "", "站点根地址（测试或镜像使用）")

	root.AddCommand(c.serveCmd(), c.movieCmd(), c.searchCmd(), c.proxiesCmd())
	return root
}

// setup 按“.env -> 配置文件 -> 环境变量 -> 显式 flag”的顺序得到最终配置，并初始化 logger。
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &exitError{code: 2, err: fmt.Errorf("加载 %s 失败：%w", c.envFile, err)}
		}
	}

	flags := cmd.Flags()
	cfg, err := config.Load(c.configPath,
		config.Binding{Key: "logging.level", Flag: flags.Lookup("log-level")},
		config.Binding{Key: "logging.format", Flag: flags.Lookup("log-format")},
		config.Binding{Key: "scraper.proxy_url", Flag: flags.Lookup("proxy")},
		config.Binding{Key: "scraper.base_url", Flag: flags.Lookup("base-url")},
		config.Binding{Key: "server.host", Flag: flags.Lookup("host")},
		config.Binding{Key: "server.port", Flag: flags.Lookup("port")},
		config.Binding{Key: "proxies.concurrency", Flag: flags.Lookup("concurrency")},
	)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	c.cfg = cfg

	lc := cfg.Logging.Logger()
	lc.Out = c.stderr
	c.log = logger.New(lc)
	c.log.Debug().Str("config", c.configPath).Str("command", cmd.Name()).Msg("配置已加载")
	return nil
}

func (c *cli) close() {
	if c.log != nil {
		_ = c.log.Close()
	}
}

// service 按配置组装查询服务（每个进程一个 http.Client，复用连接池）。
func (c *cli) service() (*query.Service, error) {
	sc := c.cfg.Scraper
	client, err := httpx.NewMetaClient(sc.ProxyURL, sc.Timeout)
	if err != nil {
		return nil, &exitError{code: 2, err: fmt.Errorf("%s：scraper.proxy_url 无效：%w", config.ErrCodeInvalid, err)}
	}
	return &query.Service{
		Provider: rottentomatoes.Provider{
			BaseURL:      sc.BaseURL,
			MaxActors:    sc.MaxActors,
			MaxDirectors: sc.MaxDirectors,
		},
		Client:      client,
		Concurrency: sc.SearchConcurrency,
		Log:         c.log.WithComponent("query").Logger,
	}, nil
}
