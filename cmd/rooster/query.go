package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/database"
	"github.com/hatlonely/rooster/rdb/mapper"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/hatlonely/rooster/rdb/repository"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// FindOptions find 子命令参数
type FindOptions struct {
	*RootOptions
	Columns []string
	Where   []string
	Sort    []string
	Limit   int
}

func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count the rows of the configured table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd.Context(), rootOpts.Config, func(ctx context.Context, repo *repository.Repository[rdb.Row]) error {
				n, err := repo.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Query the configured table and print rows as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(opts)
			if err != nil {
				return err
			}
			return withRepository(cmd.Context(), rootOpts.Config, func(ctx context.Context, repo *repository.Repository[rdb.Row]) error {
				rows, err := repo.Find(ctx, q)
				if err != nil {
					return err
				}
				return writeRows(cmd.OutOrStdout(), rows)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "projection, table default when empty")
	cmd.Flags().StringSliceVar(&opts.Where, "where", nil, "equality conditions as column=value")
	cmd.Flags().StringSliceVar(&opts.Sort, "sort", nil, "sort columns as column[:asc|desc]")
	cmd.Flags().IntVar(&opts.Limit, "limit", query.DefaultLimit, "row limit")

	return cmd
}

func buildQuery(opts *FindOptions) (*query.Query, error) {
	sort, err := parseSort(opts.Sort)
	if err != nil {
		return nil, err
	}
	b := query.NewBuilder().Select(opts.Columns...).OrderBy(sort...).Limit(opts.Limit)
	for _, w := range opts.Where {
		column, value, ok := strings.Cut(w, "=")
		if !ok {
			return nil, errors.Errorf("invalid where %q, expect column=value", w)
		}
		b.Where(query.Eq(column, value))
	}
	return b.Build()
}

// withRepository 打开执行器，fn 返回后关闭
func withRepository(ctx context.Context, filename string, fn func(ctx context.Context, repo *repository.Repository[rdb.Row]) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	config, err := loadConfig(filename)
	if err != nil {
		return err
	}
	executor, err := database.NewExecutorWithOptions(&config.Database)
	if err != nil {
		return err
	}
	defer executor.Close()

	repo, err := repository.NewRepositoryWithOptions[rdb.Row](&config.Repository, executor, rowMapper())
	if err != nil {
		return err
	}
	return fn(ctx, repo)
}

// rowMapper 原样返回执行器给出的行，只用于读
func rowMapper() mapper.Mapper[rdb.Row] {
	return &mapper.Funcs[rdb.Row]{
		Row: func(row rdb.Row) (*rdb.Row, error) {
			return &row, nil
		},
	}
}

func writeRows(w io.Writer, rows []*rdb.Row) error {
	encoder := json.NewEncoder(w)
	for _, row := range rows {
		printable := make(map[string]any, len(*row))
		for k, v := range *row {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			printable[k] = v
		}
		if err := encoder.Encode(printable); err != nil {
			return errors.Wrap(err, "encode row failed")
		}
	}
	return nil
}
