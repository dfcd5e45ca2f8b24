package engine

import "fmt"

// ResourceResolver turns an image reference stored on a panel into something
// the display surface can load, usually a URL.
type ResourceResolver interface {
	Resolve(ref string) (string, error)
}

// ResolverFunc adapts a function to ResourceResolver.
type ResolverFunc func(ref string) (string, error)

func (f ResolverFunc) Resolve(ref string) (string, error) { return f(ref) }

// ResourceNotFoundError reports an image reference with no backing resource.
type ResourceNotFoundError struct {
	Ref string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.Ref)
}
