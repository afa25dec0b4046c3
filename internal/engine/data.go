package engine

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/fetcher"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// ParsePriority accepts low, normal or high in any case.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority %q", s)
	}
}

// FetchRequest is one retrieval. It is not modified once handed to the
// engine.
type FetchRequest struct {
	URL     url.URL
	Formats []fetcher.Format
	Options fetcher.ExtractionOptions
	// Priority only matters inside a batch.
	Priority Priority
	// TTL of the cached result; zero uses the configured default.
	TTL time.Duration
}

func NewFetchRequest(target url.URL, formats ...fetcher.Format) FetchRequest {
	return FetchRequest{
		URL:      target,
		Formats:  formats,
		Priority: PriorityNormal,
	}
}

func (r FetchRequest) PriorityLevel() int {
	return int(r.Priority)
}

func (r FetchRequest) Target() string {
	return r.URL.String()
}
