package models

import "time"

// File is the metadata row of an object stored in the files bucket.
type File struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	FilePath    string    `gorm:"size:255;not null;uniqueIndex" json:"file_path"`
	FileSize    int64     `gorm:"not null" json:"file_size"`
	FileType    string    `gorm:"size:255" json:"file_type"`
	PreviewPath string    `gorm:"size:255" json:"preview_path,omitempty"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	UploadedBy  uint      `gorm:"not null;index" json:"uploaded_by"`
	Uploader    *Profile  `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FileListFilter narrows file listings. The zero value lists every visible file.
type FileListFilter struct {
	CategoryID *uint
	// RootOnly selects files without a category; ignored when CategoryID is set.
	RootOnly bool
	Query    string
	// IncludeAdminOnly keeps files whose category is admin_only.
	IncludeAdminOnly bool
	Limit            int
	Offset           int
}

// DownloadLink is the response of a signed URL request.
type DownloadLink struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expiresAt"`
}
