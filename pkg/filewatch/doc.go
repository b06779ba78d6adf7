// Package filewatch notifies subscribers when any of a dynamically
// managed set of files changes on disk.
//
// Watched files are grouped by parent directory so that many files
// share one native watch handle, rapid successive writes to the same
// file are debounced into a single notification, and a failure of the
// native watch backend (such as an event buffer overflow) triggers an
// automatic rebuild of all handles.
//
// Usage:
//
//	w := filewatch.New(filewatch.Options{})
//	defer w.Close()
//
//	cancel, err := w.Subscribe(func(ev filewatch.Event) {
//	    log.Printf("%s %s", ev.Kind, ev.Path)
//	})
//	if err != nil {
//	    return err
//	}
//	defer cancel()
//
//	if err := w.AddFile("/etc/app/config.yaml"); err != nil {
//	    return err
//	}
//	if err := w.Start(); err != nil {
//	    return err
//	}
//
// Subscribers run synchronously on the delivery goroutine and must not
// perform long-running work inline. No cross-file ordering is promised;
// per-file debounce uses wall-clock timestamps, so clock resolution
// bounds the debounce precision.
package filewatch
