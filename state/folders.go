package state

import "sync"

// DefaultFolderDepth is the folder nesting bound when none is configured
const DefaultFolderDepth = 4

// FolderObserver is notified with the current folder (empty string for root)
// and the stack depth after every mutation.
type FolderObserver func(current string, depth int)

// Folders is the bounded stack of named mapping overlays. The top of the
// stack is the current folder; an empty stack means root.
type Folders struct {
	mu        sync.Mutex
	stack     []string
	maxDepth  int
	observers []FolderObserver
}

// NewFolders creates folder state at root with the given depth bound
func NewFolders(maxDepth int) *Folders {
	if maxDepth <= 0 {
		maxDepth = DefaultFolderDepth
	}
	return &Folders{maxDepth: maxDepth}
}

// Enter pushes name as the current folder. Entering beyond the depth bound
// is rejected: Enter returns false and the stack is left untouched.
func (f *Folders) Enter(name string) bool {
	f.mu.Lock()
	if len(f.stack) >= f.maxDepth {
		f.mu.Unlock()
		return false
	}
	f.stack = append(f.stack, name)
	current, depth, observers := f.topLocked()
	f.mu.Unlock()

	f.notify(observers, current, depth)
	return true
}

// ExitOne pops the current folder. On an empty stack it clears to root.
func (f *Folders) ExitOne() {
	f.mu.Lock()
	if len(f.stack) > 0 {
		f.stack = f.stack[:len(f.stack)-1]
	}
	current, depth, observers := f.topLocked()
	f.mu.Unlock()

	f.notify(observers, current, depth)
}

// ExitToRoot clears the whole stack
func (f *Folders) ExitToRoot() {
	f.mu.Lock()
	f.stack = f.stack[:0]
	current, depth, observers := f.topLocked()
	f.mu.Unlock()

	f.notify(observers, current, depth)
}

// Current returns the active folder name, or empty string at root
func (f *Folders) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.stack) == 0 {
		return ""
	}
	return f.stack[len(f.stack)-1]
}

// InFolder reports whether any folder overlay is active
func (f *Folders) InFolder() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stack) > 0
}

// Depth returns the current stack depth
func (f *Folders) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stack)
}

// MaxDepth returns the configured nesting bound
func (f *Folders) MaxDepth() int {
	return f.maxDepth
}

// Observe registers an observer for folder changes
func (f *Folders) Observe(fn FolderObserver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

func (f *Folders) topLocked() (string, int, []FolderObserver) {
	current := ""
	if len(f.stack) > 0 {
		current = f.stack[len(f.stack)-1]
	}
	return current, len(f.stack), f.observers
}

// notify runs outside the lock so observers may call back into Folders
func (f *Folders) notify(observers []FolderObserver, current string, depth int) {
	for _, fn := range observers {
		fn(current, depth)
	}
}
