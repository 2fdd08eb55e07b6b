package sl

import (
	"log/slog"
	"strings"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Secret keeps only the last three characters of the value; used for personal
// data such as document and phone numbers
func Secret(key, value string) slog.Attr {
	r := "***"
	if len(value) > 5 {
		r = strings.Repeat("*", len(value)-3) + value[len(value)-3:]
	}
	if value == "" {
		r = "?"
	}
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(r),
	}
}

func Module(mod string) slog.Attr {
	return slog.Attr{
		Key:   "mod",
		Value: slog.StringValue(mod),
	}
}
