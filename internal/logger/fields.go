package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

func Op(v string) zap.Field {
	return zap.String("op", v)
}

func Component(v string) zap.Field {
	return zap.String("component", v)
}

func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

func Purpose(v string) zap.Field {
	return zap.String("purpose", v)
}

func Txn(v string) zap.Field {
	return zap.String("txn", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Email logs an address with the local part masked down to its first rune,
// e.g. "j***@example.com".
func Email(v string) zap.Field {
	return zap.String("email", MaskEmail(v))
}

func MaskEmail(v string) string {
	at := strings.LastIndexByte(v, '@')
	if at <= 0 {
		return "***"
	}
	local := []rune(v[:at])
	return string(local[0]) + "***" + v[at:]
}
