package pack

import (
	logx "github.com/ije/gox/log"
)

var log = &logx.Logger{}

// SetLogger sets the logger of the pack package.
func SetLogger(logger *logx.Logger) {
	log = logger
}
