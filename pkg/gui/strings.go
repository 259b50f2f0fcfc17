package gui

const (
	trayTooltip = "handctl - hand controller companion"

	nextTooltip = `Show the next calibration instruction.

At the last instruction this finishes the session. The tray returns to idle a moment later.`
	quitTooltip = `Quit the tray, but keep the handctl daemon running.

Scheduled calibrations still start without the tray. Use the handctl command line to follow them.`
)
