package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/tomatoapi/internal/proxycheck"
)

func (c *cli) proxiesCmd() *cobra.Command {
	var random bool
	cmd := &cobra.Command{
		Use:   "proxies [proxy...]",
		Short: "探测代理是否可用（默认探测配置中的 proxies.list）",
		Long: `并发探测代理：通过代理请求 proxies.target（默认 https://ipinfo.io/json），HTTP 200 视为可用。
stdout 每行输出一个可用代理（按字典序）；没有可用代理时退出码为 1。

--random 不做探测，只从列表中随机取一个输出。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := args
			if len(list) == 0 {
				list = c.cfg.Proxies.List
			}
			if random {
				fmt.Fprintln(c.stdout, proxycheck.RandomProxy(list))
				return nil
			}

			pc := c.cfg.Proxies
			checker := proxycheck.Checker{
				Target:      pc.Target,
				Timeout:     pc.Timeout,
				Concurrency: pc.Concurrency,
				Log:         c.log.WithComponent("proxycheck").Logger,
			}
			working := checker.Working(cmd.Context(), list)
			for _, p := range working {
				fmt.Fprintln(c.stdout, p)
			}
			if len(working) == 0 {
				return &exitError{code: 1, err: fmt.Errorf("没有可用代理（共探测 %d 个）", len(list))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&random, "random", false, "随机输出一个代理，不做探测")
	cmd.Flags().Int("concurrency", 0, "同时探测的代理数（默认 8）")
	return cmd
}
