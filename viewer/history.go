package viewer

// PushHistory remembers the current page.
func (c *Controller) PushHistory() {
	c.history = append(c.history, c.current)
}

// PopHistory returns to the most recently remembered page. It reports
// false when there is none.
func (c *Controller) PopHistory() bool {
	n := len(c.history)
	if n == 0 {
		return false
	}
	i := c.history[n-1]
	c.history = c.history[:n-1]
	c.SetDisplayedIndex(i)
	return true
}

// HistoryLen returns the number of remembered pages.
func (c *Controller) HistoryLen() int { return len(c.history) }
