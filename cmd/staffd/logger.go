package main

import (
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-staff/pkg/types"
)

// loggerAdapter adapts glog.Logger to types.Logger.
type loggerAdapter struct {
	l glog.Logger
}

var _ types.Logger = (*loggerAdapter)(nil)

func (a *loggerAdapter) Debug(msg string, args ...any) {
	a.l.Debug(msg, args...)
}

func (a *loggerAdapter) Info(msg string, args ...any) {
	a.l.Info(msg, args...)
}

func (a *loggerAdapter) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"error", err}, args...)
	}
	a.l.Error(msg, args...)
}
