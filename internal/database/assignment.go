package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/fanconnect/server/internal/models"
)

// AssignWorker creates a worker-model pairing. Assigning the same pair twice
// is a no-op thanks to the unique index on (worker_id, model_id).
func (d *Database) AssignWorker(workerID, modelID uuid.UUID) (*models.WorkerAssignment, error) {
	assignment := &models.WorkerAssignment{
		WorkerID: workerID,
		ModelID:  modelID,
		IsActive: true,
	}

	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "worker_id"}, {Name: "model_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_active": true}),
	}).Create(assignment).Error
	if err != nil {
		return nil, err
	}

	return assignment, nil
}

// UnassignWorker removes the pairing; removing an absent pair is a no-op.
func (d *Database) UnassignWorker(workerID, modelID uuid.UUID) error {
	return d.db.
		Where("worker_id = ? AND model_id = ?", workerID, modelID).
		Delete(&models.WorkerAssignment{}).Error
}

// GetAssignedModels returns the models the worker chats on behalf of.
func (d *Database) GetAssignedModels(workerID uuid.UUID) ([]models.User, error) {
	modelIDs, err := d.assignedIDs("worker_id", workerID, "model_id")
	if err != nil {
		return nil, err
	}

	var users []models.User
	if len(modelIDs) == 0 {
		return users, nil
	}
	err = d.db.Where("id IN ?", modelIDs).Find(&users).Error
	return users, err
}

// GetAssignedWorkers returns the ids of workers assigned to the model. The
// message router calls this on every fan-to-model message, so it stays an
// id-only query.
func (d *Database) GetAssignedWorkers(modelID uuid.UUID) ([]uuid.UUID, error) {
	return d.assignedIDs("model_id", modelID, "worker_id")
}

func (d *Database) assignedIDs(byColumn string, id uuid.UUID, selectColumn string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := d.db.Model(&models.WorkerAssignment{}).
		Where(byColumn+" = ? AND is_active = ?", id, true).
		Pluck(selectColumn, &ids).Error
	return ids, err
}
