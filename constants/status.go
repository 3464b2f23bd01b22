package constants

// DocStatus is the canonical per-document state inside a pipeline run.
type DocStatus string

// Stable values (these exact strings appear in run reports).
const (
	DocDiscovered      DocStatus = "DISCOVERED"       // found in the input directory
	DocTextRead        DocStatus = "TEXT_READ"        // PDF text + lines reconstructed
	DocDateTimeOK      DocStatus = "DATETIME_OK"      // an extractor resolved date and time
	DocDateTimeMissing DocStatus = "DATETIME_MISSING" // no extractor resolved date/time
	DocMatched         DocStatus = "MATCHED"          // a covering contract was found
	DocUnmatched       DocStatus = "UNMATCHED"        // no covering contract
	DocAssembled       DocStatus = "ASSEMBLED"        // output folder written
	DocFailed          DocStatus = "FAILED"           // terminal failure, batch continued
)
