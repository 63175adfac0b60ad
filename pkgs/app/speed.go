package app

import (
	"fmt"

	"github.com/keskad/trackctl/pkgs/commandstation"
	"github.com/keskad/trackctl/pkgs/core"
)

// SetSpeedAction sets the speed and direction of a locomotive. speed follows
// pkgs/core.Speed's advanced-byte convention (0=stop, 1=emergency stop,
// 2-127=running steps), the same convention commandstation.Station's
// LAN_X_SET_LOCO_DRIVE encoder rounds it through, so any value outside the
// 7-bit field is rejected here before it ever reaches the wire.
func (app *LocoApp) SetSpeedAction(locoId uint8, speed uint8, forward bool, speedSteps uint8) error {
	if speed > 127 {
		return fmt.Errorf("speed %d exceeds the 7-bit advanced speed field (%s)", speed, core.SpeedFromByte128Steps(127))
	}

	if cmdErr := app.initializeCommandStation(); cmdErr != nil {
		return cmdErr
	}
	defer app.station.CleanUp()

	return app.station.SetSpeed(commandstation.LocoAddr(locoId), speed, forward, speedSteps)
}

// GetSpeedAction retrieves the current speed and direction of a locomotive
func (app *LocoApp) GetSpeedAction(locoId uint8) (speed uint8, forward bool, err error) {
	if cmdErr := app.initializeCommandStation(); cmdErr != nil {
		return 0, false, cmdErr
	}
	defer app.station.CleanUp()

	return app.station.GetSpeed(commandstation.LocoAddr(locoId))
}
