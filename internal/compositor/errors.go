package compositor

import "fmt"

// SourceDecodeError reports an unreadable or corrupt source image.
// It is scoped to a single image; sibling images are unaffected.
type SourceDecodeError struct {
	Err error
}

func (e *SourceDecodeError) Error() string {
	return fmt.Sprintf("source decode: %v", e.Err)
}

func (e *SourceDecodeError) Unwrap() error {
	return e.Err
}

// RenderContextError reports that no drawing surface could be allocated.
// There is no fallback rendering path, so callers treat it as fatal for
// the current pass.
type RenderContextError struct {
	Reason string
}

func (e *RenderContextError) Error() string {
	return "render context unavailable: " + e.Reason
}
