package model

// DownloadRequest describes one download attempt. It exists only for the
// duration of a single handling cycle and is never persisted.
//
// Fields:
//
//	UserID     – Telegram user requesting the download.
//	ChatID     – chat the artifact and status messages go to.
//	Platform   – platform ID from the configured platform table.
//	SourceLink – the link the user submitted, unvalidated.
type DownloadRequest struct {
	UserID     int64
	ChatID     int64
	Platform   string
	SourceLink string
}

// DeliveredArtifact is a downloaded file that has been handed to the user
// and now waits on disk for its scheduled deletion. Transient: it lives from
// successful delivery until the deferred deletion fires or cleanup removes
// it early.
type DeliveredArtifact struct {
	FilePath   string
	SizeBytes  int64
	MessageRef int // Telegram message ID of the delivered file
}
