// Package watcher keeps the discovery cache honest on live folders.
//
// Directory mtimes do not reliably track content changes on every
// filesystem, so cached folder scans can outlive reality. The watcher
// observes watched folders through fsnotify and invalidates the
// affected cache entries the moment an image file is created,
// modified, removed, or renamed. Callers can also register listeners
// to react to the same events.
package watcher
