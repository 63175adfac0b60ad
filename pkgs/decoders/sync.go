package decoders

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SyncAction discriminates what PlanSync decided to do with one file.
type SyncAction int

const (
	ActionUpload SyncAction = iota
	ActionDelete
	ActionReupload
)

func (a SyncAction) String() string {
	switch a {
	case ActionUpload:
		return "upload"
	case ActionDelete:
		return "delete"
	case ActionReupload:
		return "re-upload"
	default:
		return "unknown"
	}
}

// SyncStep is one file-level action PlanSync decided on.
type SyncStep struct {
	Action    SyncAction
	Name      string
	SizeBytes int64
}

// recentWindow is how far back "recently modified" reaches when deciding
// which local files get unconditionally re-uploaded.
const recentWindow = 24 * time.Hour

// recentLimit caps how many recently modified files get the unconditional
// re-upload treatment.
const recentLimit = 5

// PlanSync compares the contents of localDir against the given sound slot
// on the decoder and returns the steps needed to bring the decoder in line:
// local files missing remotely are uploaded, remote files missing locally
// are deleted, and files present on both sides but differing in size are
// re-uploaded. Unless withoutLast is set, the up-to-5 most recently
// modified local files (modified within the last 24h) are always
// re-uploaded, even if their size matches, since file content may have
// changed without a size change.
func (d *RailboxRB23xx) PlanSync(slot uint8, localDir string, withoutLast bool) ([]SyncStep, error) {
	remote, err := d.ListSoundSlot(slot)
	if err != nil {
		return nil, fmt.Errorf("cannot list remote slot %d: %w", slot, err)
	}
	remoteByName := make(map[string]RemoteFileInfo, len(remote))
	for _, f := range remote {
		remoteByName[f.Name] = f
	}

	entries, err := os.ReadDir(localDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read local directory %q: %w", localDir, err)
	}

	type localFile struct {
		name    string
		size    int64
		modTime time.Time
	}
	local := make([]localFile, 0, len(entries))
	localByName := make(map[string]localFile, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			return nil, fmt.Errorf("cannot stat %q: %w", e.Name(), infoErr)
		}
		lf := localFile{name: e.Name(), size: info.Size(), modTime: info.ModTime()}
		local = append(local, lf)
		localByName[lf.name] = lf
	}

	forcedReupload := map[string]bool{}
	if !withoutLast {
		sort.Slice(local, func(i, j int) bool { return local[i].modTime.After(local[j].modTime) })
		cutoff := time.Now().Add(-recentWindow)
		for i := 0; i < len(local) && i < recentLimit; i++ {
			if local[i].modTime.After(cutoff) {
				forcedReupload[local[i].name] = true
			}
		}
	}

	var steps []SyncStep
	for _, lf := range local {
		remoteFile, onDevice := remoteByName[lf.name]
		switch {
		case !onDevice:
			steps = append(steps, SyncStep{Action: ActionUpload, Name: lf.name, SizeBytes: lf.size})
		case forcedReupload[lf.name]:
			steps = append(steps, SyncStep{Action: ActionReupload, Name: lf.name, SizeBytes: lf.size})
		case remoteFile.SizeKB*1024 != lf.size:
			steps = append(steps, SyncStep{Action: ActionReupload, Name: lf.name, SizeBytes: lf.size})
		}
	}
	for _, rf := range remote {
		if _, stillPresent := localByName[rf.Name]; !stillPresent {
			steps = append(steps, SyncStep{Action: ActionDelete, Name: rf.Name, SizeBytes: rf.SizeKB * 1024})
		}
	}

	return steps, nil
}

// ApplySync executes the given steps against the decoder. dryRun skips the
// network calls and only invokes report for each planned step.
func (d *RailboxRB23xx) ApplySync(slot uint8, localDir string, steps []SyncStep, dryRun bool, report func(SyncStep)) error {
	for _, step := range steps {
		if report != nil {
			report(step)
		}
		if dryRun {
			continue
		}
		switch step.Action {
		case ActionDelete:
			if err := d.DeleteSoundFile(slot, step.Name); err != nil {
				return err
			}
		case ActionUpload, ActionReupload:
			f, err := os.Open(filepath.Join(localDir, step.Name))
			if err != nil {
				return fmt.Errorf("cannot open %q: %w", step.Name, err)
			}
			uploadErr := d.UploadSoundFile(slot, step.Name, f)
			_ = f.Close()
			if uploadErr != nil {
				return uploadErr
			}
		}
	}
	return nil
}

// SyncSoundSlot plans and (unless dryRun) applies a single sync pass
// between localDir and the given sound slot, reporting every step taken.
func (d *RailboxRB23xx) SyncSoundSlot(slot uint8, localDir string, dryRun bool, withoutLast bool, report func(SyncStep)) error {
	steps, err := d.PlanSync(slot, localDir, withoutLast)
	if err != nil {
		return err
	}
	return d.ApplySync(slot, localDir, steps, dryRun, report)
}

// WatchSoundSlot runs an initial sync pass, then watches localDir and
// re-syncs after filesystem changes, coalescing events that arrive within
// 500 ms of each other into one pass. It returns an error when a sync pass
// or the watcher fails, and nil if the watcher's channels are closed;
// otherwise it keeps running until the process exits.
func (d *RailboxRB23xx) WatchSoundSlot(slot uint8, localDir string, dryRun bool, withoutLast bool, report func(SyncStep)) error {
	if err := d.SyncSoundSlot(slot, localDir, dryRun, withoutLast, report); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot start filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(localDir); err != nil {
		return fmt.Errorf("cannot watch %q: %w", localDir, err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C // drain the immediate fire, we already synced once above

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(500 * time.Millisecond)
		case <-debounce.C:
			if err := d.SyncSoundSlot(slot, localDir, dryRun, withoutLast, report); err != nil {
				return err
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("filesystem watcher error: %w", watchErr)
		}
	}
}
