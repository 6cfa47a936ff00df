package config

const (
	// MaxNameLength is the maximum length for folder and document names.
	// Names longer than this are rejected with InvalidName.
	MaxNameLength = 100

	// MaxFolderDepth is the maximum depth of the folder tree. The root
	// folder has depth 0, so at most ten nested levels exist below it.
	MaxFolderDepth = 10

	// MaxDocumentSize is the maximum document size in bytes.
	MaxDocumentSize = 5_000_000_000

	// MaxTagsPerDocument bounds the tag set on a single document.
	MaxTagsPerDocument = 50

	// MaxTagLength bounds a single tag.
	MaxTagLength = 50

	// MaxMetadataEntries bounds the string-to-string metadata mapping.
	MaxMetadataEntries = 20

	// MaxWriteRetries bounds internal retries of conditional writes that
	// lost to a concurrent mutation. Exhaustion surfaces PartialFailure.
	MaxWriteRetries = 3

	// WalkBatchSize is how many children a subtree walk processes per
	// listing, so long walks make incremental, cancellable progress.
	WalkBatchSize = 100
)
