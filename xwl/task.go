package xwl

import (
	"deedles.dev/xwl/dix"
	"golang.org/x/exp/slices"
)

// task is a deferred callback. A buffer release task belongs both to
// the buffer it waits on and, usually, to the window it was added
// through, and is removed from both when it runs.
type task struct {
	frame  dix.FrameTaskFunc
	buffer dix.BufferTaskFunc
	arg    any
	window *Window
	buf    *Buffer
	live   bool
}

type taskID int

// taskArena stores tasks by index so that the lists referencing them
// are plain slices of IDs.
type taskArena struct {
	tasks []task
	free  []taskID
}

func (a *taskArena) add(t task) taskID {
	t.live = true
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.tasks[id] = t
		return id
	}

	a.tasks = append(a.tasks, t)
	return taskID(len(a.tasks) - 1)
}

// take removes a task from the arena and returns it. It returns false
// if the task has already been taken.
func (a *taskArena) take(id taskID) (task, bool) {
	t := a.tasks[id]
	if !t.live {
		return t, false
	}
	a.tasks[id] = task{}
	a.free = append(a.free, id)
	return t, true
}

func (a *taskArena) len() int {
	return len(a.tasks) - len(a.free)
}

func removeTask(list []taskID, id taskID) []taskID {
	return slices.DeleteFunc(list, func(v taskID) bool { return v == id })
}

// runFrameTasks runs every task in list. The list must already have
// been detached from its window.
func (s *Screen) runFrameTasks(list []taskID, flags dix.TaskFlags, time uint32) {
	for _, id := range list {
		t, ok := s.tasks.take(id)
		if !ok {
			continue
		}
		t.frame(flags, time, t.arg)
	}
}

// runBufferTasks runs every task in list, removing each one from the
// window it was added through. The list must already have been
// detached from its buffer.
func (s *Screen) runBufferTasks(list []taskID, flags dix.TaskFlags) {
	for _, id := range list {
		t, ok := s.tasks.take(id)
		if !ok {
			continue
		}
		if t.window != nil {
			t.window.bufferTasks = removeTask(t.window.bufferTasks, id)
		}
		t.buffer(flags, t.arg)
	}
}

// AddFrameTask arranges for f to be called with arg the next time w's
// surface is ready for a new frame. It fails if w has no surface.
func (s *Screen) AddFrameTask(w *dix.Window, f dix.FrameTaskFunc, arg any) bool {
	xw := s.windows[w]
	if xw == nil {
		return false
	}

	switch {
	case xw.frame == nil:
		xw.armFrame()
		xw.commit()
	case len(xw.frameTasks) == 0:
		xw.commit()
	}

	id := s.tasks.add(task{frame: f, arg: arg, window: xw})
	xw.frameTasks = append(xw.frameTasks, id)
	return true
}

// AddBufferReleaseTask arranges for f to be called with arg when the
// compositor releases the buffer currently bound to w, creating that
// buffer if necessary. It fails if w has no surface or no buffer can
// be created.
func (s *Screen) AddBufferReleaseTask(w *dix.Window, f dix.BufferTaskFunc, arg any) bool {
	xw := s.windows[w]
	if xw == nil {
		return false
	}
	b := xw.buffer()
	if b == nil {
		return false
	}

	id := s.tasks.add(task{buffer: f, arg: arg, window: xw, buf: b})
	b.tasks = append(b.tasks, id)
	xw.bufferTasks = append(xw.bufferTasks, id)
	return true
}

// addReleaseTask adds a buffer release task that does not belong to
// any window.
func (s *Screen) addReleaseTask(b *Buffer, f dix.BufferTaskFunc, arg any) {
	id := s.tasks.add(task{buffer: f, arg: arg, buf: b})
	b.tasks = append(b.tasks, id)
}
