package object

// Blob is opaque file content; it carries no structure of its own beyond
// the raw bytes an object reader already produced, so there is nothing to
// decode here beyond the bytes themselves.
type Blob struct {
	Content []byte
}
