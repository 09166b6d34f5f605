package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/tomatoapi/internal/api"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 查询服务",
		Long: `启动只读的 JSON 查询服务：

  GET /               存活检查（纯文本）
  GET /healthz        {"status":"ok"}
  GET /movie/{name}   单部电影（name 中的下划线视为空格）
  GET /search/{name}  {"movies":[...]}，搜索页上所有带评分的电影`,
		Args: cobra.NoArgs,
		RunE: c.serve,
	}
	cmd.Flags().String("host", "", "监听地址（默认 0.0.0.0）")
	cmd.Flags().Int("port", 0, "监听端口（默认 8080）")
	return cmd
}

func (c *cli) serve(cmd *cobra.Command, _ []string) error {
	svc, err := c.service()
	if err != nil {
		return err
	}
	printEffective(c.stderr, c.cfg)

	srv := api.NewServer(svc, c.log.WithComponent("api").Logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(c.cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return &exitError{code: 1, err: err}
		}
		return nil
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return &exitError{code: 1, err: err}
	}
	return nil
}
