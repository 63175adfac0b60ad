package app

import (
	"fmt"
	"time"

	"github.com/keskad/trackctl/pkgs/commandstation"
)

// wifiFunctionCV is the CV that stores which function number controls the
// Railbox RB23xx's built-in WiFi router.
const wifiFunctionCV = 200

// RBWifiAction reads CV200 to find which function number drives the
// decoder's built-in WiFi router, then switches that function on or off on
// the main track.
func (app *LocoApp) RBWifiAction(track string, locoId uint8, enable bool, timeout time.Duration) error {
	if cmdErr := app.initializeCommandStation(); cmdErr != nil {
		return cmdErr
	}
	defer app.station.CleanUp()

	fnNum, err := app.station.ReadCV(commandstation.Mode(track), commandstation.LocoCV{
		LocoId: commandstation.LocoAddr(locoId),
		Cv:     commandstation.CV{Num: wifiFunctionCV},
	}, commandstation.Timeout(timeout))
	if err != nil {
		return fmt.Errorf("cannot read CV%d to find the WiFi function number: %w", wifiFunctionCV, err)
	}

	return app.station.SendFn(commandstation.MainTrackMode, commandstation.LocoAddr(locoId), commandstation.FuncNum(fnNum), enable)
}
