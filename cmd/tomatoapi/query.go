package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/tomatoapi/internal/app/query"
)

func (c *cli) movieCmd() *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "movie <name...>",
		Short: "查询单部电影（搜索后取第一个带评分的电影）",
		Long: `查询单部电影并把结果以 JSON 输出到 stdout。

参数可以是电影名（多个参数用空格拼接，下划线视为空格），
也可以是详情页地址（https://www.rottentomatoes.com/m/... 或 /m/...），此时跳过搜索。`,
		Example: `  tomatoapi movie top gun maverick
  tomatoapi movie happy_gilmore --text
  tomatoapi movie /m/forrest_gump`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			rec, err := svc.Movie(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return &exitError{code: 1, err: errorLine(err)}
			}
			if text {
				printMovieText(c.stdout, rec)
				return nil
			}
			return c.emitJSON(rec)
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "输出人类可读的摘要而不是 JSON")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <name...>",
		Short: "列出搜索页上所有带评分的电影",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			movies, err := svc.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return &exitError{code: 1, err: errorLine(err)}
			}
			c.log.Info().Int("movies", len(movies)).Msg("search 完成")
			return c.emitJSON(searchOutput{Movies: movies})
		},
	}
}

// searchOutput 与 HTTP 接口 /search 的响应体保持同一形状。
type searchOutput struct {
	Movies any `json:"movies"`
}

func (c *cli) emitJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &exitError{code: 1, err: err}
	}
	return nil
}

type humanError struct {
	msg string
	err error
}

func (e *humanError) Error() string { return e.msg }

func (e *humanError) Unwrap() error { return e.err }

// errorLine 把查询错误转换成 stderr 上的一行提示，保留原始错误链。
func errorLine(err error) error {
	return &humanError{msg: query.Humanize(err), err: err}
}
