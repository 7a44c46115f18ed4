package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hatlonely/rooster/rdb"
	"github.com/hatlonely/rooster/rdb/grammar"
	"github.com/hatlonely/rooster/rdb/query"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// CompileOptions compile 子命令参数
type CompileOptions struct {
	*RootOptions
	Grammar string
	Op      string
	IDs     int
	Columns []string
	Dynamic []string
	Where   []string
	Sort    []string
	Limit   int
}

func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the SQL a table definition compiles to",
		Long: `Print the SQL statement the configured grammar generates for one operation.

Dynamic columns are given as name:TYPE, for example --dynamic browser:VARCHAR.
Nothing is executed and no database connection is opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := runCompile(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Grammar, "grammar", "g", "", "override the grammar in the config")
	cmd.Flags().StringVar(&opts.Op, "op", "select", "count|select|find|delete|save")
	cmd.Flags().IntVar(&opts.IDs, "ids", 1, "number of ids for select and delete")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "fixed columns for save, projection for select and find")
	cmd.Flags().StringSliceVar(&opts.Dynamic, "dynamic", nil, "dynamic columns as name:TYPE")
	cmd.Flags().StringSliceVar(&opts.Where, "where", nil, "columns compared for equality in find")
	cmd.Flags().StringSliceVar(&opts.Sort, "sort", nil, "sort columns as column[:asc|desc]")
	cmd.Flags().IntVar(&opts.Limit, "limit", query.NoLimit, "row limit, unbounded by default")

	return cmd
}

func runCompile(opts *CompileOptions) (string, error) {
	options, err := loadRepositoryOptions(opts.Config)
	if err != nil {
		return "", err
	}
	if opts.Grammar != "" {
		options.Grammar = opts.Grammar
	}
	g, err := grammar.Get(options.Grammar)
	if err != nil {
		return "", err
	}
	table, err := rdb.NewTableMetadataWithOptions(&options.Table)
	if err != nil {
		return "", err
	}
	sort, err := parseSort(opts.Sort)
	if err != nil {
		return "", err
	}
	dynamic, err := parseDynamic(opts.Dynamic)
	if err != nil {
		return "", err
	}

	switch opts.Op {
	case "count":
		return g.Count(table)
	case "delete":
		return g.DeleteByIDs(table, opts.IDs)
	case "select":
		return g.SelectByID(table, sort, opts.Limit, opts.IDs, dynamic, opts.Columns)
	case "find":
		if len(opts.Where) == 0 {
			return "", errors.New("find requires at least one --where column")
		}
		conditions := make([]*query.Condition, len(opts.Where))
		for i, column := range opts.Where {
			conditions[i] = query.Eq(column, column)
		}
		return g.SelectByCondition(table, sort, opts.Limit, conditions, dynamic, opts.Columns)
	case "save":
		columns := make(rdb.Columns, len(opts.Columns))
		for i, name := range opts.Columns {
			columns[i] = rdb.Column{Name: name, Value: name}
		}
		values := make(rdb.Columns, len(dynamic))
		for i, t := range dynamic {
			value, err := sampleValue(t.Type)
			if err != nil {
				return "", errors.WithMessagef(err, "dynamic column %s", t.Name)
			}
			values[i] = rdb.Column{Name: t.Name, Value: value}
		}
		return g.Save(table, columns, values)
	}
	return "", errors.Errorf("unknown op %q, expect count|select|find|delete|save", opts.Op)
}

func parseSort(values []string) (query.Sort, error) {
	var sort query.Sort
	for _, v := range values {
		column, direction, _ := strings.Cut(v, ":")
		switch strings.ToLower(direction) {
		case "", "asc":
			sort = append(sort, query.Asc(column))
		case "desc":
			sort = append(sort, query.Desc(column))
		default:
			return nil, errors.Errorf("invalid sort %q", v)
		}
	}
	return sort, sort.Validate()
}

func parseDynamic(values []string) (rdb.ColumnTypes, error) {
	var types rdb.ColumnTypes
	for _, v := range values {
		name, sqlType, ok := strings.Cut(v, ":")
		if !ok || name == "" || sqlType == "" {
			return nil, errors.Errorf("invalid dynamic column %q, expect name:TYPE", v)
		}
		types = append(types, rdb.ColumnType{Name: name, Type: strings.ToUpper(sqlType)})
	}
	return types, nil
}

// sampleValue 按 SQL 类型构造一个值，让方言推断出相同的类型
func sampleValue(sqlType string) (any, error) {
	switch sqlType {
	case "VARCHAR":
		return "", nil
	case "TINYINT":
		return int8(0), nil
	case "SMALLINT":
		return int16(0), nil
	case "INTEGER":
		return int32(0), nil
	case "BIGINT":
		return int64(0), nil
	case "FLOAT":
		return float32(0), nil
	case "DOUBLE":
		return float64(0), nil
	case "BOOLEAN":
		return false, nil
	case "DATE":
		return rdb.Date{}, nil
	case "TIMESTAMP":
		return time.Time{}, nil
	}
	return nil, errors.WithMessagef(rdb.ErrUnsupportedType, "%s", sqlType)
}
