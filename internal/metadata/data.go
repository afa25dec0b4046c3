package metadata

import (
	"time"
)

type FetchEvent struct {
	fetchUrl    string
	strategy    string
	httpStatus  int
	duration    time.Duration
	contentType string
	attempt     int
}

/*
batchStats
  - Represents a terminal, derived summary of a completed batch
  - Contains only aggregate counts and durations
  - Is computed by the batch scheduler after the queue drains
  - Is recorded exactly once per batch
  - Must not influence scheduling or retries
*/
type batchStats struct {
	batchID    string
	total      int
	succeeded  int
	failed     int
	durationMs int64
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, fallback, or abort decisions.
	 - ErrorCause values MUST have stable, package-agnostic semantics.
	 - Packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

  - Failure caused by network transport or remote availability.
  - TCP timeouts, DNS failures, 5xx responses, browser navigation errors.

# CausePolicyDisallow

  - The remote side refused service.
  - HTTP 401 / 403, HTTP 429, rate-limit acquisition aborted.

# CauseContentInvalid

  - Content was retrieved but could not be processed meaningfully.
  - Non-HTML responses, empty bodies, unparseable DOM, corrupt cache records.

# CauseStorageFailure

  - Failure while reading or persisting cache entries or exported results.

# CauseDeadlineExceeded

  - The caller-supplied deadline elapsed before an operation finished.

# CauseUpstreamFailure

  - A capability backed by an external service (remote scraping API,
    summarizer model) answered with an error.

# CauseInvariantViolation

  - A system-level invariant was violated.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseDeadlineExceeded
	CauseUpstreamFailure
	CauseInvariantViolation
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseDeadlineExceeded:
		return "deadline_exceeded"
	case CauseUpstreamFailure:
		return "upstream_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrHost       AttributeKey = "host"
	AttrStrategy   AttributeKey = "strategy"
	AttrAttempt    AttributeKey = "attempt"
	AttrCacheKey   AttributeKey = "cache_key"
	AttrCacheTier  AttributeKey = "cache_tier"
	AttrFormat     AttributeKey = "format"
	AttrCapability AttributeKey = "capability"
	AttrBatchID    AttributeKey = "batch_id"
	AttrPriority   AttributeKey = "priority"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrWritePath  AttributeKey = "write_path"
	AttrField      AttributeKey = "field"
)

type ArtifactKind string

const (
	ArtifactResult  ArtifactKind = "result"
	ArtifactSiteMap ArtifactKind = "site_map"
)

type CacheOutcome string

const (
	CacheHit     CacheOutcome = "hit"
	CacheMiss    CacheOutcome = "miss"
	CacheExpired CacheOutcome = "expired"
	CacheStore   CacheOutcome = "store"
	CacheEvict   CacheOutcome = "evict"
)
