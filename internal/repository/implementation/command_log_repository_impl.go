package implementation

import (
	"context"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/mapper"
	"helmet-orchestrator-be/internal/model"
	"helmet-orchestrator-be/internal/repository/contract"
	"helmet-orchestrator-be/internal/repository/specification"

	"gorm.io/gorm"
)

type CommandLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CommandLogMapper
}

func NewCommandLogRepository(db *gorm.DB) contract.CommandLogRepository {
	return &CommandLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewCommandLogMapper(),
	}
}

func (r *CommandLogRepositoryImpl) Create(ctx context.Context, log *entity.CommandLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *CommandLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CommandLog, error) {
	var models []*model.CommandLog
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

type TelemetryLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TelemetryLogMapper
}

func NewTelemetryLogRepository(db *gorm.DB) contract.TelemetryLogRepository {
	return &TelemetryLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewTelemetryLogMapper(),
	}
}

func (r *TelemetryLogRepositoryImpl) Create(ctx context.Context, log *entity.TelemetryLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *TelemetryLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TelemetryLog, error) {
	var models []*model.TelemetryLog
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}
