package storage

// Persistence

type WriteResult struct {
	urlHash      string // identity (filename without extension)
	path         string
	metadataPath string
	contentHash  string
	written      bool
}

func NewWriteResult(
	urlHash string,
	path string,
	metadataPath string,
	contentHash string,
	written bool,
) WriteResult {
	return WriteResult{
		urlHash:      urlHash,
		path:         path,
		metadataPath: metadataPath,
		contentHash:  contentHash,
		written:      written,
	}
}

func (w *WriteResult) URLHash() string {
	return w.urlHash
}

func (w *WriteResult) Path() string {
	return w.path
}

// MetadataPath is the JSON sidecar holding the full result.
func (w *WriteResult) MetadataPath() string {
	return w.metadataPath
}

func (w *WriteResult) ContentHash() string {
	return w.contentHash
}

// Written is false for dry runs.
func (w *WriteResult) Written() bool {
	return w.written
}
