package commands

import "flowroute/theme"

var styles = theme.NewStyles(nil)

var (
	idStyle    = styles.ID
	mutedStyle = styles.Muted
	okStyle    = styles.OK
	warnStyle  = styles.Warn
	frameStyle = styles.Frame
)

const (
	iconRouted     = theme.IconOK
	iconDegenerate = theme.IconWarn
)
