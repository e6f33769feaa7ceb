package domain

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}

// IngestionStage tracks the strictly linear lifecycle of one pipeline
// run. There are no backward transitions; a failure from the reasoning
// stage onward moves directly to StageFailed.
type IngestionStage string

const (
	StageIdle             IngestionStage = "idle"
	StageResolvingProfile IngestionStage = "resolving_profile"
	StageExtracting       IngestionStage = "extracting"
	StageAnalyzingLayout  IngestionStage = "analyzing_layout"
	StageReasoning        IngestionStage = "reasoning"
	StageNormalizing      IngestionStage = "normalizing"
	StageDone             IngestionStage = "done"
	StageFailed           IngestionStage = "failed"
)

// IngestionStatus is the terminal outcome persisted to the audit log.
type IngestionStatus string

const (
	IngestionStatusCompleted IngestionStatus = "completed"
	IngestionStatusFailed    IngestionStatus = "failed"
)
