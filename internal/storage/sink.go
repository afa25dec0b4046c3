package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/pkg/failure"
	"github.com/rohmanhakim/fetchkit/pkg/fileutil"
	"github.com/rohmanhakim/fetchkit/pkg/hashutil"
	"github.com/rohmanhakim/fetchkit/pkg/urlutil"
)

/*
Responsibilities
- Persist fetched results
- Ensure deterministic filenames

Output Characteristics
- <outputDir>/<urlHash>.<ext> holds the content
- <outputDir>/<urlHash>.json holds the full result with its metadata
- Files are replaced atomically, so reruns overwrite safely
*/

type Sink interface {
	Write(
		outputDir string,
		result fetcher.FetchResult,
		hashAlgo hashutil.HashAlgo,
	) (WriteResult, failure.ClassifiedError)
}

var _ Sink = (*LocalSink)(nil)

type LocalSink struct {
	metadataSink metadata.MetadataSink
	dryRun       bool
}

// NewLocalSink returns a sink that writes under an output directory. In
// dry-run mode it resolves paths but writes nothing.
func NewLocalSink(
	metadataSink metadata.MetadataSink,
	dryRun bool,
) LocalSink {
	if metadataSink == nil {
		metadataSink = &metadata.NoopSink{}
	}
	return LocalSink{
		metadataSink: metadataSink,
		dryRun:       dryRun,
	}
}

func (s *LocalSink) Write(
	outputDir string,
	result fetcher.FetchResult,
	hashAlgo hashutil.HashAlgo,
) (WriteResult, failure.ClassifiedError) {
	writeResult, err := write(outputDir, result, hashAlgo, s.dryRun)
	if err != nil {
		var storageError *StorageError
		errors.As(err, &storageError)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"LocalSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, result.URL()),
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	if writeResult.Written() {
		s.metadataSink.RecordArtifact(
			metadata.ArtifactResult,
			writeResult.Path(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, writeResult.Path()),
				metadata.NewAttr(metadata.AttrURL, result.URL()),
				metadata.NewAttr(metadata.AttrFormat, string(result.Format())),
			},
		)
	}
	return writeResult, nil
}

// FileExtension maps a result format to the extension of its content file.
func FileExtension(format fetcher.Format) string {
	switch format {
	case fetcher.FormatHTML, fetcher.FormatRawHTML:
		return "html"
	case fetcher.FormatText:
		return "txt"
	default:
		return "md"
	}
}

func write(
	outputDir string,
	result fetcher.FetchResult,
	hashAlgo hashutil.HashAlgo,
	dryRun bool,
) (WriteResult, failure.ClassifiedError) {
	// file names hash the canonical URL so equivalent URLs share a file
	identity := result.URL()
	if parsed, ok := urlutil.Resolve(nil, result.URL()); ok {
		canonical := urlutil.CanonicalizeWithQuery(*parsed)
		identity = canonical.String()
	}

	urlHashFull, err := hashutil.HashBytes([]byte(identity), hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}
	urlHash := urlHashFull[:12]

	content := []byte(result.Content())
	contentHash, err := hashutil.HashBytes(content, hashAlgo)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseHashComputationFailed,
		}
	}

	fullPath := filepath.Join(outputDir, urlHash+"."+FileExtension(result.Format()))
	metadataPath := filepath.Join(outputDir, urlHash+".json")
	if dryRun {
		return NewWriteResult(urlHash, fullPath, metadataPath, contentHash, false), nil
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseEncodeFailure,
			Path:      metadataPath,
		}
	}

	if err := writeFile(fullPath, content); err != nil {
		return WriteResult{}, err
	}
	if err := writeFile(metadataPath, encoded); err != nil {
		return WriteResult{}, err
	}
	return NewWriteResult(urlHash, fullPath, metadataPath, contentHash, true), nil
}

func writeFile(path string, data []byte) *StorageError {
	err := fileutil.WriteFileAtomic(path, data)
	if err == nil {
		return nil
	}

	cause := ErrCauseWriteFailure
	retryable := false
	var fileErr *fileutil.FileError
	if errors.As(err, &fileErr) {
		retryable = fileErr.Retryable
		if fileErr.Cause == fileutil.ErrCausePathError {
			cause = ErrCausePathError
		}
	}
	return &StorageError{
		Message:   err.Error(),
		Retryable: retryable,
		Cause:     cause,
		Path:      path,
	}
}
