package app

import (
	"github.com/tphakala/codeseek/internal/buildinfo"
	"github.com/tphakala/codeseek/internal/conf"
)

// Context is shared by the commands. Settings is filled in once the
// configuration has been loaded, before any subcommand runs.
type Context struct {
	Settings   *conf.Settings
	BuildInfo  *buildinfo.Context
	ConfigFile string
}

// NewContext returns a command context for a build.
func NewContext(info *buildinfo.Context) *Context {
	return &Context{BuildInfo: info}
}
