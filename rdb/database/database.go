package database

import (
	"github.com/pkg/errors"
)

// Options 按类型创建执行器，Observable 不为空时包装一层观测
type Options struct {
	Type       string             `cfg:"type" def:"sql" validate:"oneof=sql gorm"`
	SQL        SQLOptions         `cfg:"sql"`
	Gorm       GormOptions        `cfg:"gorm"`
	Observable *ObservableOptions `cfg:"observable"`
}

func NewExecutorWithOptions(options *Options) (Executor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	var executor Executor
	switch options.Type {
	case "", "sql":
		sql, err := NewSQLWithOptions(&options.SQL)
		if err != nil {
			return nil, errors.WithMessage(err, "create sql executor failed")
		}
		executor = sql
	case "gorm":
		gorm, err := NewGormWithOptions(&options.Gorm)
		if err != nil {
			return nil, errors.WithMessage(err, "create gorm executor failed")
		}
		executor = gorm
	default:
		return nil, errors.Errorf("unsupported executor type: %s", options.Type)
	}

	if options.Observable == nil {
		return executor, nil
	}
	observable, err := NewObservableWithOptions(executor, options.Observable, nil, nil)
	if err != nil {
		_ = executor.Close()
		return nil, err
	}
	return observable, nil
}
