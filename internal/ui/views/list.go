package views

// cursorList tracks a cursor over n rows and the first row on screen
type cursorList struct {
	cursor int
	offset int
	n      int
	// rows shown at once
	visible int
}

// setLen updates the row count, keeping the cursor in range
func (l *cursorList) setLen(n int) {
	l.n = n
	l.move(0)
}

// move moves the cursor by delta
func (l *cursorList) move(delta int) {
	l.cursor += delta
	if l.cursor >= l.n {
		l.cursor = l.n - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	l.updateOffset()
}

func (l *cursorList) top() {
	l.cursor = 0
	l.offset = 0
}

func (l *cursorList) bottom() {
	l.cursor = l.n - 1
	l.move(0)
}

// updateOffset ensures the cursor is visible
func (l *cursorList) updateOffset() {
	visible := max(l.visible, 1)
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+visible {
		l.offset = l.cursor - visible + 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
}

// nearEnd reports whether the cursor is within margin rows of the last row,
// the terminal stand-in for the end of a list scrolling into view.
func (l *cursorList) nearEnd(margin int) bool {
	return l.n == 0 || l.cursor >= l.n-1-margin
}

// window returns the range of rows on screen
func (l *cursorList) window() (from, to int) {
	return l.offset, min(l.offset+max(l.visible, 1), l.n)
}
