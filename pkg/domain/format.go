package domain

import dErrors "legalgate/pkg/domain-errors"

// ExportFormat is a review export format offered by the application. Which
// formats a session may use is decided by the entitlement resolver.
type ExportFormat string

const (
	FormatPNG  ExportFormat = "png"
	FormatJPEG ExportFormat = "jpeg"
	FormatPDF  ExportFormat = "pdf"
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatSVG  ExportFormat = "svg"
	FormatHTML ExportFormat = "html"
)

var validExportFormats = map[ExportFormat]bool{
	FormatPNG:  true,
	FormatJPEG: true,
	FormatPDF:  true,
	FormatCSV:  true,
	FormatJSON: true,
	FormatSVG:  true,
	FormatHTML: true,
}

// ParseExportFormat constructs an ExportFormat from external input.
func ParseExportFormat(s string) (ExportFormat, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "export format cannot be empty")
	}
	f := ExportFormat(s)
	if !validExportFormats[f] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid export format")
	}
	return f, nil
}

// String returns the string representation of the format.
func (f ExportFormat) String() string {
	return string(f)
}
