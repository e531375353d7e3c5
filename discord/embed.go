package discord

import "fmt"

// Embed size limits, matching the service's documented embed constraints.
const (
	EmbedTitleLimit       = 256
	EmbedDescriptionLimit = 2048
	EmbedFieldsLimit      = 25
	EmbedFieldNameLimit   = 256
	EmbedFieldValueLimit  = 1024
	EmbedFooterTextLimit  = 2048
	EmbedTotalLimit       = 6000
)

// Embed is the minimal rich-embed shape the REST client sends.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       uint32       `json:"color,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type EmbedAuthor struct {
	Name string `json:"name"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// ErrEmbedTooBig is raised when an embed violates one of its size limits.
type ErrEmbedTooBig struct {
	Field  string
	Length int
	Max    int
}

func (e *ErrEmbedTooBig) Error() string {
	return fmt.Sprintf("embed field %q is %d characters, over the %d limit", e.Field, e.Length, e.Max)
}

// EnforceEmbedLimits validates e against every size limit: title <= 256,
// description <= 2048, fields <= 25, each field.name <= 256, field.value
// <= 1024, footer.text <= 2048, and the total character count across all
// of the above plus the author name <= 6000.
func (e *Embed) EnforceEmbedLimits() error {
	if e == nil {
		return nil
	}

	total := len(e.Title) + len(e.Description)

	if len(e.Title) > EmbedTitleLimit {
		return &ErrEmbedTooBig{"title", len(e.Title), EmbedTitleLimit}
	}
	if len(e.Description) > EmbedDescriptionLimit {
		return &ErrEmbedTooBig{"description", len(e.Description), EmbedDescriptionLimit}
	}
	if len(e.Fields) > EmbedFieldsLimit {
		return &ErrEmbedTooBig{"fields", len(e.Fields), EmbedFieldsLimit}
	}
	for _, f := range e.Fields {
		if len(f.Name) > EmbedFieldNameLimit {
			return &ErrEmbedTooBig{"field.name", len(f.Name), EmbedFieldNameLimit}
		}
		if len(f.Value) > EmbedFieldValueLimit {
			return &ErrEmbedTooBig{"field.value", len(f.Value), EmbedFieldValueLimit}
		}
		total += len(f.Name) + len(f.Value)
	}
	if e.Footer != nil {
		if len(e.Footer.Text) > EmbedFooterTextLimit {
			return &ErrEmbedTooBig{"footer.text", len(e.Footer.Text), EmbedFooterTextLimit}
		}
		total += len(e.Footer.Text)
	}
	if e.Author != nil {
		total += len(e.Author.Name)
	}

	if total > EmbedTotalLimit {
		return &ErrEmbedTooBig{"total", total, EmbedTotalLimit}
	}

	return nil
}
