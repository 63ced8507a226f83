package views

// Paginator keeps a cursor over a list and the window of rows on screen
type Paginator struct {
	pageSize int
	offset   int
	cursor   int
	total    int
}

// NewPaginator creates a paginator showing pageSize rows at a time
func NewPaginator(pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Paginator{pageSize: pageSize}
}

// SetPageSize changes the number of visible rows, e.g. after a resize
func (p *Paginator) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	p.pageSize = n
	p.follow()
}

// SetTotal sets the list length and pulls the cursor back inside it
func (p *Paginator) SetTotal(total int) {
	p.total = total
	p.SetCursor(p.cursor)
}

// Cursor returns the absolute index under the cursor
func (p *Paginator) Cursor() int {
	return p.cursor
}

// SetCursor moves the cursor, clamped to the list
func (p *Paginator) SetCursor(pos int) {
	p.cursor = max(min(pos, p.total-1), 0)
	p.follow()
}

// CursorUp moves the cursor up by one
func (p *Paginator) CursorUp() bool {
	if p.cursor == 0 {
		return false
	}
	p.SetCursor(p.cursor - 1)
	return true
}

// CursorDown moves the cursor down by one
func (p *Paginator) CursorDown() bool {
	if p.cursor >= p.total-1 {
		return false
	}
	p.SetCursor(p.cursor + 1)
	return true
}

// VisibleRange returns the half-open range of rows on screen
func (p *Paginator) VisibleRange() (start, end int) {
	return p.offset, min(p.offset+p.pageSize, p.total)
}

// TotalPages returns the number of pages, at least one
func (p *Paginator) TotalPages() int {
	if p.total == 0 {
		return 1
	}
	return (p.total + p.pageSize - 1) / p.pageSize
}

// CurrentPage returns the 1-based page number
func (p *Paginator) CurrentPage() int {
	return p.offset/p.pageSize + 1
}

// NextPage jumps to the first row of the next page
func (p *Paginator) NextPage() bool {
	if p.offset+p.pageSize >= p.total {
		return false
	}
	p.SetCursor(p.offset + p.pageSize)
	return true
}

// PrevPage jumps to the first row of the previous page
func (p *Paginator) PrevPage() bool {
	if p.offset == 0 {
		return false
	}
	p.SetCursor(p.offset - p.pageSize)
	return true
}

// Reset empties the list
func (p *Paginator) Reset() {
	p.cursor, p.offset, p.total = 0, 0, 0
}

// follow keeps the page that holds the cursor on screen
func (p *Paginator) follow() {
	p.offset = (p.cursor / p.pageSize) * p.pageSize
}
