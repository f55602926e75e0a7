package viewer

// Hooks receives notifications from a Controller. All methods are called
// on the goroutine that drives the controller. Embed NopHooks to implement
// only some of them.
type Hooks interface {
	// OnDisplayedIndexChanged reports a new current page.
	OnDisplayedIndexChanged(page int)

	// OnViewSettled reports that interaction and animation have stopped.
	// Hosts persist the display state here.
	OnViewSettled(page int)

	OnRenderError(page int, err error)

	// OnChildSetup is called after a page enters the window or has its
	// search highlights reassigned.
	OnChildSetup(page int)
	OnMoveToChild(page int)
	OnMoveOffChild(page int)

	// OnTapMainDocArea reports a tap away from links and the paging
	// margins. Hosts typically toggle their chrome.
	OnTapMainDocArea()

	// OnDocMotion reports that the user dragged the document.
	OnDocMotion()

	OnExternalLink(uri string)
	OnSearchResult(r *SearchResult)
	OnNoMatch(query string)

	// OnInvalidate asks the host to repaint.
	OnInvalidate()
}

// NopHooks ignores every notification.
type NopHooks struct{}

func (NopHooks) OnDisplayedIndexChanged(int)  {}
func (NopHooks) OnViewSettled(int)            {}
func (NopHooks) OnRenderError(int, error)     {}
func (NopHooks) OnChildSetup(int)             {}
func (NopHooks) OnMoveToChild(int)            {}
func (NopHooks) OnMoveOffChild(int)           {}
func (NopHooks) OnTapMainDocArea()            {}
func (NopHooks) OnDocMotion()                 {}
func (NopHooks) OnExternalLink(string)        {}
func (NopHooks) OnSearchResult(*SearchResult) {}
func (NopHooks) OnNoMatch(string)             {}
func (NopHooks) OnInvalidate()                {}

var _ Hooks = NopHooks{}
