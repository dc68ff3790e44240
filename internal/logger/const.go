package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Field = zapcore.Field

var (
	Int     = zap.Int
	Int64   = zap.Int64
	String  = zap.String
	Strings = zap.Strings
	Bool    = zap.Bool
	Error   = zap.Error
	Any     = zap.Any
)
