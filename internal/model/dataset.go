package model

import "time"

// Dataset はダウンロード提供する統計データセットのメタデータを表す。
// 実ファイルはDATASET_DIR配下に置かれ、FilePathは相対パスで保持する。
type Dataset struct {
	ID            string
	Name          string
	Title         string
	FilePath      string
	MimeType      string
	SizeBytes     int64
	DownloadCount int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DownloadRecord はユーザーによるデータセットダウンロードの記録を表す。
type DownloadRecord struct {
	ID           string
	UserID       string
	DatasetID    string
	DownloadedAt time.Time
}
