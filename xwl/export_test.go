package xwl

func BufferState(b *Buffer) string {
	return b.state.String()
}

func PendingTasks(s *Screen) int {
	return s.tasks.len()
}
