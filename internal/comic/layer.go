package comic

import "github.com/inamate/panels/backend-go/internal/typeid"

// Direction moves a layer one step through the stack.
type Direction int

const (
	Down Direction = iota
	Up
)

// AddLayer appends a new visible, unlocked layer on top of the stack.
func (p *Page) AddLayer(name string) *Layer {
	l := &Layer{
		ID:         typeid.NewLayerID(),
		Name:       name,
		Visible:    true,
		ElementIDs: []string{},
	}
	p.Layers = append(p.Layers, l)
	return l
}

// Layer returns the layer with the given id.
func (p *Page) Layer(id string) (*Layer, error) {
	if i := p.layerIndex(id); i >= 0 {
		return p.Layers[i], nil
	}
	return nil, ErrLayerNotFound
}

// RemoveLayer deletes an empty layer. A layer that still holds elements is
// left in place and a *LayerNotEmptyError is returned.
func (p *Page) RemoveLayer(id string) error {
	i := p.layerIndex(id)
	if i < 0 {
		return ErrLayerNotFound
	}
	if n := len(p.Layers[i].ElementIDs); n > 0 {
		return &LayerNotEmptyError{LayerID: id, Count: n}
	}
	p.Layers = append(p.Layers[:i], p.Layers[i+1:]...)
	return nil
}

// ReorderLayer swaps the layer with its neighbour. Moving past either end of
// the stack is a no-op.
func (p *Page) ReorderLayer(id string, dir Direction) error {
	i := p.layerIndex(id)
	if i < 0 {
		return ErrLayerNotFound
	}

	j := i - 1
	if dir == Up {
		j = i + 1
	}
	if j < 0 || j >= len(p.Layers) {
		return nil
	}
	p.Layers[i], p.Layers[j] = p.Layers[j], p.Layers[i]
	return nil
}

func (p *Page) SetLayerVisible(id string, visible bool) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Visible = visible
	return nil
}

func (p *Page) SetLayerLocked(id string, locked bool) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Locked = locked
	return nil
}

func (p *Page) RenameLayer(id, name string) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Name = name
	return nil
}

// ElementsInLayer returns the layer's elements in insertion order.
func (p *Page) ElementsInLayer(l *Layer) []Element {
	p.ensureIndex()
	out := make([]Element, 0, len(l.ElementIDs))
	for _, id := range l.ElementIDs {
		if el, ok := p.index[id]; ok {
			out = append(out, el)
		}
	}
	return out
}

func (p *Page) layerIndex(id string) int {
	for i, l := range p.Layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
