package catalogue

import (
	"time"
)

type RevisionStatus string

const (
	RevisionStatusPending RevisionStatus = "pending"
	RevisionStatusLive    RevisionStatus = "live"
	RevisionStatusError   RevisionStatus = "error"
)

type DatasetRevision struct {
	ID        int `gorm:"primaryKey"`
	DatasetID int

	Status RevisionStatus

	UploadFile       string
	OriginalFileHash string
	URLLink          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

type StepCategory string

const (
	StepCategoryTimetables StepCategory = "TIMETABLES"
	StepCategoryFares      StepCategory = "FARES"
)

type PipelineStep struct {
	ID int `gorm:"primaryKey"`

	Name     string       `gorm:"uniqueIndex:idx_step_name_category"`
	Category StepCategory `gorm:"uniqueIndex:idx_step_name_category"`
}

type TaskStatus string

const (
	TaskStatusStarted TaskStatus = "STARTED"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
)

type ETLTaskResult struct {
	ID string `gorm:"primaryKey"` // fresh uuid per stage invocation

	RevisionID int
	StepID     int
	Filename   string

	Status TaskStatus

	ErrorCodeID  *int
	ErrorMessage string

	StartedAt   time.Time
	CompletedAt *time.Time
}

type PipelineErrorCode struct {
	ID   int    `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

type TXCFileAttributes struct {
	ID         int64 `gorm:"primaryKey"`
	RevisionID int

	Filename             string
	ServiceCode          string
	RevisionNumber       int
	NationalOperatorCode string
	LicenceNumber        string
	LineNames            []string `gorm:"serializer:json"`
	Origin               string
	Destination          string

	OperatingPeriodStartDate *time.Time
	OperatingPeriodEndDate   *time.Time

	ModificationDateTime time.Time
	PublicUse            bool
	ServiceMode          string
	Hash                 string
}

type FaresMetadata struct {
	RevisionID int `gorm:"primaryKey"`

	NumOfFareProducts       int
	NumOfFareZones          int
	NumOfLines              int
	NumOfSalesOfferPackages int
	NumOfUserProfiles       int
	NumOfTripProducts       int

	ValidFrom *time.Time
	ValidTo   *time.Time

	SchemaVersion string

	StopIDs []string `gorm:"serializer:json"`
}

type DataCatalogueEntry struct {
	ID         int64 `gorm:"primaryKey"`
	RevisionID int

	Filename             string
	NationalOperatorCode []string `gorm:"serializer:json"`
	LineIDs              []string `gorm:"serializer:json"`
	LineNames            []string `gorm:"serializer:json"`
	ProductTypes         []string `gorm:"serializer:json"`
	UserTypes            []string `gorm:"serializer:json"`

	ValidFrom *time.Time
	ValidTo   *time.Time
}
