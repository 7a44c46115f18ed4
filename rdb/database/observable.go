package database

import (
	"context"
	"time"

	"github.com/hatlonely/rooster/log"
	"github.com/hatlonely/rooster/rdb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableOptions struct {
	// EnableMetrics 是否启用指标收集
	EnableMetrics bool `cfg:"enableMetrics" def:"true"`

	// EnableLogging 是否记录每条语句
	EnableLogging bool `cfg:"enableLogging" def:"false"`

	// EnableTracing 是否启用分布式追踪
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，同时作为日志和 span 的 component 属性
	Name string `cfg:"name" def:"rdb" validate:"required"`
}

// ObservableMetrics 语句级别的 prometheus 指标
type ObservableMetrics struct {
	statementCounter   *prometheus.CounterVec
	statementDuration  *prometheus.HistogramVec
	batchSizeHistogram *prometheus.HistogramVec
}

// NewObservableMetrics 创建指标并注册到 registerer，registerer 为 nil 时使用默认 registry
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	metrics := &ObservableMetrics{
		statementCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_statements_total",
				Help: "Total number of executed sql statements",
			},
			[]string{"operation", "status"},
		),
		statementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_statement_duration_seconds",
				Help:    "Duration of sql statements in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		batchSizeHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_batch_size",
				Help:    "Number of parameter sets in batch statements",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{metrics.statementCounter, metrics.statementDuration, metrics.batchSizeHistogram} {
		if err := registerer.Register(c); err != nil {
			return nil, errors.Wrap(err, "register metrics failed")
		}
	}

	return metrics, nil
}

// Observable 装饰器，为任意 Executor 添加指标、日志和追踪
type Observable struct {
	executor Executor
	observer *observer
}

type observer struct {
	logger  log.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer
	name    string
}

// NewObservableWithOptions registerer 为 nil 时注册到默认 registry，logger 为 nil 时使用 log.Default()
func NewObservableWithOptions(executor Executor, options *ObservableOptions, registerer prometheus.Registerer, logger log.Logger) (*Observable, error) {
	if executor == nil {
		return nil, errors.New("executor is nil")
	}
	if options == nil {
		return nil, errors.New("options is nil")
	}

	obs := &observer{name: options.Name}
	if options.EnableLogging {
		if logger == nil {
			logger = log.Default()
		}
		obs.logger = logger.WithGroup("executor")
	}
	if options.EnableMetrics {
		metrics, err := NewObservableMetrics(options.Name, registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer("rdb." + options.Name)
	}

	return &Observable{executor: executor, observer: obs}, nil
}

// observe 统一的语句观测逻辑，batchSize < 0 表示非批量语句
func (obs *observer) observe(ctx context.Context, operation string, sql string, batchSize int, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
			attribute.String("db.statement", sql),
		}
		if batchSize >= 0 {
			attrs = append(attrs, attribute.Int("batch_size", batchSize))
		}
		ctx, span = obs.tracer.Start(ctx, "rdb."+operation, trace.WithAttributes(attrs...))
		defer span.End()
	}

	if obs.metrics != nil && batchSize >= 0 {
		obs.metrics.batchSizeHistogram.WithLabelValues(operation).Observe(float64(batchSize))
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.statementCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.statementDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "sql statement failed",
				"component", obs.name,
				"operation", operation,
				"sql", sql,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "sql statement completed",
				"component", obs.name,
				"operation", operation,
				"sql", sql,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (o *Observable) Execute(ctx context.Context, sql string, args []any) (int64, error) {
	return observedExecute(ctx, o.observer, o.executor, sql, args)
}

func (o *Observable) ExecuteBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error) {
	return observedExecuteBatch(ctx, o.observer, o.executor, sql, argSets)
}

func (o *Observable) Query(ctx context.Context, sql string, args []any, fn func(row rdb.Row) error) error {
	return o.observer.observe(ctx, "query", sql, -1, func(ctx context.Context) error {
		return o.executor.Query(ctx, sql, args, fn)
	})
}

func (o *Observable) BeginTx(ctx context.Context) (Transaction, error) {
	var tx Transaction
	err := o.observer.observe(ctx, "begin", "BEGIN", -1, func(ctx context.Context) error {
		var err error
		tx, err = o.executor.BeginTx(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &observableTransaction{tx: tx, observer: o.observer, ctx: ctx}, nil
}

func (o *Observable) Close() error {
	return o.executor.Close()
}

// observableTransaction Commit/Rollback 没有 ctx 参数，使用 BeginTx 的 ctx 挂到调用方的 trace 上
type observableTransaction struct {
	tx       Transaction
	observer *observer
	ctx      context.Context
}

func (t *observableTransaction) Execute(ctx context.Context, sql string, args []any) (int64, error) {
	return observedExecute(ctx, t.observer, t.tx, sql, args)
}

func (t *observableTransaction) ExecuteBatch(ctx context.Context, sql string, argSets [][]any) ([]int64, error) {
	return observedExecuteBatch(ctx, t.observer, t.tx, sql, argSets)
}

func (t *observableTransaction) Query(ctx context.Context, sql string, args []any, fn func(row rdb.Row) error) error {
	return t.observer.observe(ctx, "query", sql, -1, func(ctx context.Context) error {
		return t.tx.Query(ctx, sql, args, fn)
	})
}

func (t *observableTransaction) Commit() error {
	return t.observer.observe(t.ctx, "commit", "COMMIT", -1, func(context.Context) error {
		return t.tx.Commit()
	})
}

func (t *observableTransaction) Rollback() error {
	return t.observer.observe(t.ctx, "rollback", "ROLLBACK", -1, func(context.Context) error {
		return t.tx.Rollback()
	})
}

func observedExecute(ctx context.Context, obs *observer, q Querier, sql string, args []any) (int64, error) {
	var n int64
	err := obs.observe(ctx, "execute", sql, -1, func(ctx context.Context) error {
		var err error
		n, err = q.Execute(ctx, sql, args)
		return err
	})
	return n, err
}

func observedExecuteBatch(ctx context.Context, obs *observer, q Querier, sql string, argSets [][]any) ([]int64, error) {
	var counts []int64
	err := obs.observe(ctx, "execute_batch", sql, len(argSets), func(ctx context.Context) error {
		var err error
		counts, err = q.ExecuteBatch(ctx, sql, argSets)
		return err
	})
	return counts, err
}
