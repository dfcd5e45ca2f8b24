package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixComic    = "comic"
	PrefixPage     = "page"
	PrefixLayer    = "layer"
	PrefixPanel    = "panel"
	PrefixBorder   = "border"
	PrefixText     = "text"
	PrefixSnapshot = "snap"
	PrefixAsset    = "asset"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewComicID() string    { return New(PrefixComic) }
func NewPageID() string     { return New(PrefixPage) }
func NewLayerID() string    { return New(PrefixLayer) }
func NewPanelID() string    { return New(PrefixPanel) }
func NewBorderID() string   { return New(PrefixBorder) }
func NewTextID() string     { return New(PrefixText) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewAssetID() string    { return New(PrefixAsset) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
