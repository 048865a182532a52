package model

import (
	"time"

	"github.com/google/uuid"
)

// EditableProfileInfo is the part of a seeker profile the seeker can write.
type EditableProfileInfo struct {
	FullName      string `gorm:"type:text" json:"full_name" form:"full_name"`
	Email         string `gorm:"type:text" json:"email" form:"email"`
	ContactNumber string `gorm:"type:text" json:"contact_number" form:"contact_number"`
	Address       string `gorm:"type:text" json:"address" form:"address"`
	Barangay      string `gorm:"type:text" json:"barangay" form:"barangay"`
	Gender        string `gorm:"type:text" json:"gender" form:"gender"`
	BirthDate     string `gorm:"type:text" json:"birth_date" form:"birth_date"`
	Age           string `gorm:"type:text" json:"age" form:"age"`
	CivilStatus   string `gorm:"type:text" json:"civil_status" form:"civil_status"`
	DesiredJob    string `gorm:"type:text" json:"desired_job" form:"desired_job"`
	Experience    string `gorm:"type:text" json:"experience" form:"experience"`
	Education     string `gorm:"type:text" json:"education" form:"education"`
	// Skills is comma separated free text.
	Skills      string `gorm:"type:text" json:"skills" form:"skills"`
	CoverLetter string `gorm:"type:text" json:"cover_letter" form:"cover_letter"`
}

// UserProfile is the seeker's own profile record, keyed by user id.
type UserProfile struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User   User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	EditableProfileInfo
	UpdatedAt time.Time `gorm:"type:timestamptz" json:"updated_at"`
}

// UserFiles holds the seeker's photo and resume. It is stored apart from UserProfile.
// A file is either embedded as base64 (*Base64) or referenced in the blob store (*Object).
type UserFiles struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	User   User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`

	PhotoBase64 string  `gorm:"type:text" json:"-"`
	PhotoName   string  `gorm:"type:text" json:"photo_name"`
	PhotoType   string  `gorm:"type:text" json:"photo_type"`
	PhotoObject *string `gorm:"type:text" json:"-"`

	ResumeBase64 string  `gorm:"type:text" json:"-"`
	ResumeName   string  `gorm:"type:text" json:"resume_name"`
	ResumeType   string  `gorm:"type:text" json:"resume_type"`
	ResumeObject *string `gorm:"type:text" json:"-"`

	UpdatedAt time.Time `gorm:"type:timestamptz" json:"updated_at"`
}

// File kinds stored on UserFiles
const (
	FileKindPhoto  = "photo"
	FileKindResume = "resume"
)

// StoredFile is one file slot of UserFiles, detached from the column layout.
type StoredFile struct {
	Name   string
	Type   string
	Base64 string
	Object *string
}

// Present reports whether the slot holds a file.
func (f StoredFile) Present() bool {
	return f.Base64 != "" || f.Object != nil
}

// Slot returns the named file slot. ok is false for unknown kinds.
func (u *UserFiles) Slot(kind string) (StoredFile, bool) {
	switch kind {
	case FileKindPhoto:
		return StoredFile{Name: u.PhotoName, Type: u.PhotoType, Base64: u.PhotoBase64, Object: u.PhotoObject}, true
	case FileKindResume:
		return StoredFile{Name: u.ResumeName, Type: u.ResumeType, Base64: u.ResumeBase64, Object: u.ResumeObject}, true
	}
	return StoredFile{}, false
}

// SetSlot replaces the named file slot wholesale.
func (u *UserFiles) SetSlot(kind string, f StoredFile) {
	switch kind {
	case FileKindPhoto:
		u.PhotoName, u.PhotoType, u.PhotoBase64, u.PhotoObject = f.Name, f.Type, f.Base64, f.Object
	case FileKindResume:
		u.ResumeName, u.ResumeType, u.ResumeBase64, u.ResumeObject = f.Name, f.Type, f.Base64, f.Object
	}
}

// FileSummary describes one file slot without its payload.
type FileSummary struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Present     bool   `json:"present"`
	DownloadURL string `json:"download_url,omitempty"`
}

// ProfileResponse is what the profile endpoints return: profile fields plus file summaries.
type ProfileResponse struct {
	UserID uuid.UUID `json:"user_id"`
	EditableProfileInfo
	Photo          FileSummary `json:"photo"`
	Resume         FileSummary `json:"resume"`
	UpdatedAt      *time.Time  `json:"updated_at"`
	FilesUpdatedAt *time.Time  `json:"files_updated_at"`
}

// ToProfileResponse merges a profile and its file record into a response.
// Zero timestamps are reported as null.
func ToProfileResponse(p UserProfile, f UserFiles, downloadPrefix string) ProfileResponse {
	resp := ProfileResponse{
		UserID:              p.UserID,
		EditableProfileInfo: p.EditableProfileInfo,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		resp.UpdatedAt = &t
	}
	if !f.UpdatedAt.IsZero() {
		t := f.UpdatedAt
		resp.FilesUpdatedAt = &t
	}
	resp.Photo = summarize(f, FileKindPhoto, downloadPrefix)
	resp.Resume = summarize(f, FileKindResume, downloadPrefix)
	return resp
}

func summarize(f UserFiles, kind, downloadPrefix string) FileSummary {
	slot, _ := f.Slot(kind)
	s := FileSummary{Name: slot.Name, Type: slot.Type, Present: slot.Present()}
	if s.Present && downloadPrefix != "" {
		s.DownloadURL = downloadPrefix + "/" + kind
	}
	return s
}
