package catalogue

import (
	"errors"
	"time"

	"github.com/bodspipeline/bodspipeline/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoRowFound = errors.New("no row found")

// Repository is the only way the pipeline touches the catalogue. Each
// operation is a single transaction against the lazily cached connection.
type Repository struct{}

func NewRepository() (*Repository, error) {
	if _, err := database.GetConnection(); err != nil {
		return nil, err
	}

	return &Repository{}, nil
}

func (r *Repository) conn() (*gorm.DB, error) {
	return database.GetConnection()
}

func (r *Repository) GetRevision(id int) (*DatasetRevision, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var revision DatasetRevision
	result := db.First(&revision, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoRowFound
	}
	if result.Error != nil {
		return nil, result.Error
	}

	return &revision, nil
}

func (r *Repository) UpdateRevisionHash(id int, hash string) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Model(&DatasetRevision{}).Where("id = ?", id).
		Update("original_file_hash", hash).Error
}

func (r *Repository) UpdateRevisionUploadFile(id int, uploadFile string) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Model(&DatasetRevision{}).Where("id = ?", id).
		Update("upload_file", uploadFile).Error
}

func (r *Repository) UpdateRevisionStatus(id int, status RevisionStatus) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Model(&DatasetRevision{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *Repository) GetOrCreateStep(name string, category StepCategory) (*PipelineStep, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	step := PipelineStep{Name: name, Category: category}
	result := db.Where(PipelineStep{Name: name, Category: category}).FirstOrCreate(&step)
	if result.Error != nil {
		return nil, result.Error
	}

	return &step, nil
}

func (r *Repository) InsertTaskResult(taskResult *ETLTaskResult) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Create(taskResult).Error
}

func (r *Repository) UpdateTaskResult(taskResult *ETLTaskResult) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Save(taskResult).Error
}

func (r *Repository) GetErrorCode(code string) (*PipelineErrorCode, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	errorCode := PipelineErrorCode{Code: code}
	result := db.Where(PipelineErrorCode{Code: code}).FirstOrCreate(&errorCode)
	if result.Error != nil {
		return nil, result.Error
	}

	return &errorCode, nil
}

func (r *Repository) InsertFileAttributes(attributes *TXCFileAttributes) (int64, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}

	if err := db.Create(attributes).Error; err != nil {
		return 0, err
	}

	return attributes.ID, nil
}

func (r *Repository) GetFileAttributesForRevision(revisionID int) ([]TXCFileAttributes, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var attributes []TXCFileAttributes
	result := db.Where("revision_id = ?", revisionID).Order("id").Find(&attributes)
	if result.Error != nil {
		return nil, result.Error
	}

	return attributes, nil
}

func (r *Repository) UpsertFaresMetadata(metadata *FaresMetadata) error {
	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "revision_id"}},
		UpdateAll: true,
	}).Create(metadata).Error
}

func (r *Repository) UpsertDataCatalogue(entries []DataCatalogueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	db, err := r.conn()
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		revisionID := entries[0].RevisionID

		if err := tx.Where("revision_id = ?", revisionID).Delete(&DataCatalogueEntry{}).Error; err != nil {
			return err
		}

		return tx.Create(&entries).Error
	})
}

// ReconcileStartedTasks marks any still-STARTED rows for the revision as
// failed. The map reducer calls this at fan-in so children killed by the
// workflow engine's timeout do not stay open forever.
func (r *Repository) ReconcileStartedTasks(revisionID int, errorCodeID int) (int64, error) {
	db, err := r.conn()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	result := db.Model(&ETLTaskResult{}).
		Where("revision_id = ? AND status = ?", revisionID, TaskStatusStarted).
		Updates(map[string]any{
			"status":        TaskStatusFailure,
			"error_code_id": errorCodeID,
			"completed_at":  now,
		})

	return result.RowsAffected, result.Error
}
