package mdconvert

import "fmt"

// Target is the textual representation a content node is rendered to.
type Target string

const (
	TargetMarkdown Target = "markdown"
	TargetHTML     Target = "html"
	TargetText     Target = "text"
)

func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetMarkdown, TargetHTML, TargetText:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown conversion target %q", s)
	}
}

type ConversionResult struct {
	content []byte
	target  Target
}

func NewConversionResult(
	content []byte,
	target Target,
) ConversionResult {
	return ConversionResult{
		content: content,
		target:  target,
	}
}

func (c *ConversionResult) GetContent() []byte {
	return c.content
}

func (c *ConversionResult) GetTarget() Target {
	return c.target
}
