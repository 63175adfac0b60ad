package app

import (
	"github.com/dustin/go-humanize"

	"github.com/keskad/trackctl/pkgs/decoders"
)

func (app *LocoApp) ClearSoundSlot(slot uint8, opts ...decoders.Option) error {
	rb := decoders.NewRailboxRB23xx(opts...)
	return rb.ClearSoundSlot(slot)
}

// reportSyncStep prints a single sound-sync step using human-readable file sizes.
func (app *LocoApp) reportSyncStep(step decoders.SyncStep) {
	app.P.Printf("%-10s %-40s %s\n", step.Action, step.Name, humanize.Bytes(uint64(step.SizeBytes)))
}

// SyncSoundSlot runs a single sync pass between localDir and a sound slot on
// the Railbox RB23xx decoder.
func (app *LocoApp) SyncSoundSlot(slot uint8, localDir string, dryRun bool, withoutLast bool, opts ...decoders.Option) error {
	rb := decoders.NewRailboxRB23xx(opts...)
	return rb.SyncSoundSlot(slot, localDir, dryRun, withoutLast, app.reportSyncStep)
}

// WatchSoundSlot syncs once, then keeps watching localDir and re-syncs on
// changes until a sync pass or the watcher fails.
func (app *LocoApp) WatchSoundSlot(slot uint8, localDir string, dryRun bool, withoutLast bool, opts ...decoders.Option) error {
	rb := decoders.NewRailboxRB23xx(opts...)
	return rb.WatchSoundSlot(slot, localDir, dryRun, withoutLast, app.reportSyncStep)
}
