package logger

import (
	"go.uber.org/zap"
)

// NewNamed builds a zap logger for the given environment and attaches the
// service name to every entry. Development gets the human-readable config.
func NewNamed(env, service string) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Named(service), nil
}
