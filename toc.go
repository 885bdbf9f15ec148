package epubifyer

// NavPoint is one entry in the navigation document. Children nest to any
// depth and render as nested ordered lists in nav.xhtml.
type NavPoint struct {
	ID       string
	Label    string
	Href     string // item href relative to the EPUB content root
	Children []*NavPoint
}

// appendNavPoint adds np under the nav point with parentID, or at the top
// level when parentID is empty. An unknown parentID drops the entry
// silently; so does AddToTOC for an unknown item id. Both behaviors are
// part of the public contract.
func (e *Epub) appendNavPoint(np *NavPoint, parentID string) {
	if parentID == "" {
		e.toc = append(e.toc, np)
		e.tocByID[np.ID] = np
		return
	}
	parent, ok := e.tocByID[parentID]
	if !ok {
		parent = findNavPoint(e.toc, parentID)
	}
	if parent == nil {
		e.log.Debug("toc parent not found, dropping entry", "parent", parentID, "id", np.ID)
		return
	}
	parent.Children = append(parent.Children, np)
	e.tocByID[np.ID] = np
}

// findNavPoint locates a nav point by id with a depth-first walk. The id
// index covers points added through this package; the walk covers trees a
// caller has extended by hand.
func findNavPoint(points []*NavPoint, id string) *NavPoint {
	for _, np := range points {
		if np.ID == id {
			return np
		}
		if found := findNavPoint(np.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// AddToTOC inserts a navigation entry for an already registered item.
// parentID selects an existing nav point to nest under; empty means top
// level. If either id or parentID does not resolve, the call is a no-op.
func (e *Epub) AddToTOC(id, title, parentID string) {
	item, ok := e.itemsByID[id]
	if !ok {
		e.log.Debug("toc target not found, dropping entry", "id", id)
		return
	}
	e.appendNavPoint(&NavPoint{ID: id, Label: title, Href: item.Href}, parentID)
}
