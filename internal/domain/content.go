package domain

// ContentPart is one node of a message's MIME content tree: a mime type
// plus either an inline base64url payload or child parts. Consumed
// transiently by content resolution, never persisted.
type ContentPart struct {
	MimeType string
	Filename string
	Data     string // base64url, no padding (Gmail wire form)
	Parts    []ContentPart
}

// IsLeaf reports whether the part carries its payload directly.
func (p *ContentPart) IsLeaf() bool {
	return len(p.Parts) == 0
}
