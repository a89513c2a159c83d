package patterns

import "time"

// DefaultTimeout is the transport timeout for store API calls. Persists are
// never cancelled by the console; a stalled call only delays its outcome up
// to this bound.
const DefaultTimeout = 10 * time.Second

// UploadTimeout bounds multipart product submissions carrying images
const UploadTimeout = 60 * time.Second

// BulkheadWait is how long a call waits for a free bulkhead slot
const BulkheadWait = 1 * time.Second
