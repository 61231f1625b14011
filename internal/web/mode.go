package web

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GinMode maps the process log level to a gin mode: debug logging turns on
// gin's route dump and debug warnings, anything quieter runs in release mode.
func GinMode(level zerolog.Level) string {
	if level <= zerolog.DebugLevel {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
