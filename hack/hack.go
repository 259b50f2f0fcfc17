// Package hack holds files shipped alongside the binary.
package hack

import _ "embed"

// SystemdUnitTemplate is the unit installed by `handctl install`. The
// placeholder paths are replaced at install time.
//
//go:embed handctl.service
var SystemdUnitTemplate string
