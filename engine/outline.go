package engine

// Outline is a node of a document's table of contents.
type Outline struct {
	Title string
	URI   string
	Page  int
	Down  []Outline
}

// OutlineItem is a flattened outline entry.
type OutlineItem struct {
	Title string
	Level int
	Page  int
}

// FlattenOutline walks the outline tree depth first.
func FlattenOutline(o []Outline) []OutlineItem {
	var items []OutlineItem
	var walk func([]Outline, int)
	walk = func(nodes []Outline, level int) {
		for _, n := range nodes {
			items = append(items, OutlineItem{Title: n.Title, Level: level, Page: n.Page})
			walk(n.Down, level+1)
		}
	}
	walk(o, 0)
	return items
}
