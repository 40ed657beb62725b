package size

import "fmt"

// UnsupportedEncodingError signals a Content-Encoding value with no defined
// re-compression strategy. No size estimate can be produced from the body
// without guessing.
type UnsupportedEncodingError struct {
	Encoding string
	URL      string
}

func (e UnsupportedEncodingError) Error() string {
	return fmt.Sprintf("unknown Content-Encoding '%v' for '%v'",
		e.Encoding, e.URL)
}

// MalformedBodyError signals a captured body that cannot be decoded under
// its declared encoding.
type MalformedBodyError struct {
	URL string
	Err error
}

func (e MalformedBodyError) Error() string {
	return fmt.Sprintf("malformed body for '%v': %v", e.URL, e.Err)
}

func (e MalformedBodyError) Unwrap() error {
	return e.Err
}
