package watcher

import "github.com/fsnotify/fsnotify"

func fsEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}
