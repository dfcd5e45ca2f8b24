package comic

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the comic to its persisted JSON form.
func Encode(c *Comic) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal comic: %w", err)
	}
	return data, nil
}

// Decode parses a persisted comic and restores the derived state: the element
// index, each layer's ElementIDs and every panel's clip path and bounds.
func Decode(data []byte) (*Comic, error) {
	var c Comic
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal comic: %w", err)
	}
	if len(c.Pages) == 0 {
		return nil, ErrNoPages
	}
	for i, p := range c.Pages {
		if p == nil {
			return nil, fmt.Errorf("pages[%d]: %w", i, ErrNullEntry)
		}
		if err := p.rebuild(); err != nil {
			return nil, fmt.Errorf("page %s: %w", p.ID, err)
		}
	}
	return &c, nil
}

// rebuild validates element layer references and re-derives ElementIDs.
// Persisted ordering is kept for ids that are still valid; elements missing
// from their layer's list are appended in collection order.
func (p *Page) rebuild() error {
	if p.Layers == nil {
		p.Layers = []*Layer{}
	}
	if p.Panels == nil {
		p.Panels = []*Panel{}
	}
	if p.Borders == nil {
		p.Borders = []*Border{}
	}
	if p.TextElements == nil {
		p.TextElements = []*TextElement{}
	}

	if err := p.checkNulls(); err != nil {
		return err
	}

	count := len(p.Panels) + len(p.Borders) + len(p.TextElements)
	p.index = make(map[string]Element, count)
	ordered := make([]Element, 0, count)
	add := func(el Element) error {
		if _, dup := p.index[el.ElementID()]; dup {
			return fmt.Errorf("%s: %w", el.ElementID(), ErrDuplicateID)
		}
		if p.layerIndex(el.Layer()) < 0 {
			return fmt.Errorf("element %s: %w", el.ElementID(), ErrDanglingLayer)
		}
		p.index[el.ElementID()] = el
		ordered = append(ordered, el)
		return nil
	}

	for _, e := range p.Panels {
		normalizePanel(e)
		if err := add(e); err != nil {
			return err
		}
	}
	for _, e := range p.Borders {
		if err := add(e); err != nil {
			return err
		}
	}
	for _, e := range p.TextElements {
		if err := add(e); err != nil {
			return err
		}
	}

	for _, l := range p.Layers {
		seen := make(map[string]bool, len(l.ElementIDs))
		ids := make([]string, 0, len(l.ElementIDs))
		for _, id := range l.ElementIDs {
			el, ok := p.index[id]
			if !ok || el.Layer() != l.ID || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		for _, el := range ordered {
			if el.Layer() == l.ID && !seen[el.ElementID()] {
				seen[el.ElementID()] = true
				ids = append(ids, el.ElementID())
			}
		}
		l.ElementIDs = ids
	}
	return nil
}

func (p *Page) checkNulls() error {
	for i, l := range p.Layers {
		if l == nil {
			return fmt.Errorf("layers[%d]: %w", i, ErrNullEntry)
		}
	}
	for i, e := range p.Panels {
		if e == nil {
			return fmt.Errorf("panels[%d]: %w", i, ErrNullEntry)
		}
	}
	for i, e := range p.Borders {
		if e == nil {
			return fmt.Errorf("borders[%d]: %w", i, ErrNullEntry)
		}
	}
	for i, e := range p.TextElements {
		if e == nil {
			return fmt.Errorf("textElements[%d]: %w", i, ErrNullEntry)
		}
	}
	return nil
}
