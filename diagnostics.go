package gostrata

// Severity grades a diagnostic. Warnings indicate the pipeline recovered
// from malformed input; info records routine interventions.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
)

// Diagnostic codes emitted by the pipeline stages.
const (
	// CodeHeadingUnclustered marks a header whose line height was unusable
	// and received the lowest level by default.
	CodeHeadingUnclustered = "heading_unclustered"

	// CodeHeadingOrder marks a header that arrived without a level and
	// forced the open sections closed.
	CodeHeadingOrder = "heading_order"

	// CodeNestedHeader marks a header found below a root block, treated as
	// plain content.
	CodeNestedHeader = "nested_header"

	// CodeTableMerged marks a cross-page continuation that was folded into
	// its first fragment.
	CodeTableMerged = "table_merged"

	// CodeTableLowQuality marks a table that failed the quality gate and
	// entered secondary processing.
	CodeTableLowQuality = "table_low_quality"

	// CodeTableReextracted marks a table replaced by a secondary
	// extraction.
	CodeTableReextracted = "table_reextracted"

	// CodeExtractionFailed marks secondary-extraction attempts lost to
	// engine errors or timeouts.
	CodeExtractionFailed = "extraction_failed"

	// CodeTableFlagged marks a table still below the quality gate after
	// the fallback budget was spent.
	CodeTableFlagged = "table_flagged"
)

// Diagnostic is one observation from a pipeline stage. Processing never
// stops on a diagnostic; callers filter by code or severity.
type Diagnostic struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Page     int      `json:"page,omitempty"`
	BlockID  string   `json:"block_id,omitempty"`
}
