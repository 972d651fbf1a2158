package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/entity"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/domain/repository"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/persistence/models"
)

// The Gorm* repositories below mirror the Memory* repositories' contract
// exactly: a missing row is (nil, nil), never a sentinel not-found error,
// so application code written against one works unchanged against the
// other (§9 "Dual-mode persistence" — either store can stand behind the
// interfaces, and neither brings its own error vocabulary).

// GormDeviceRepository is the database-backed mirror of DeviceRepository.
type GormDeviceRepository struct {
	db *gorm.DB
}

func NewGormDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &GormDeviceRepository{db: db}
}

func (r *GormDeviceRepository) FindByID(ctx context.Context, deviceID string) (*entity.DeviceRecord, error) {
	var m models.DeviceModel
	if err := r.db.WithContext(ctx).First(&m, "device_id = ?", deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return deviceToEntity(&m)
}

func (r *GormDeviceRepository) FindAll(ctx context.Context, fleetID string) ([]*entity.DeviceRecord, error) {
	q := r.db.WithContext(ctx)
	if fleetID != "" {
		q = q.Where("fleet_id = ?", fleetID)
	}
	var rows []models.DeviceModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.DeviceRecord, 0, len(rows))
	for i := range rows {
		d, err := deviceToEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *GormDeviceRepository) Save(ctx context.Context, device *entity.DeviceRecord) error {
	m, err := deviceToModel(device)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *GormDeviceRepository) Exists(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DeviceModel{}).Where("device_id = ?", deviceID).Count(&count).Error
	return count > 0, err
}

func deviceToModel(d *entity.DeviceRecord) (*models.DeviceModel, error) {
	metaJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, err
	}
	return &models.DeviceModel{
		DeviceID:      d.DeviceID,
		FleetID:       d.FleetID,
		Status:        string(d.Status),
		HardwareType:  d.HardwareType,
		VIN:           d.VIN,
		LastHeartbeat: d.LastHeartbeat,
		Metadata:      string(metaJSON),
	}, nil
}

func deviceToEntity(m *models.DeviceModel) (*entity.DeviceRecord, error) {
	meta := make(map[string]interface{})
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
			return nil, err
		}
	}
	return &entity.DeviceRecord{
		DeviceID:      m.DeviceID,
		FleetID:       m.FleetID,
		Status:        entity.DeviceStatus(m.Status),
		HardwareType:  m.HardwareType,
		VIN:           m.VIN,
		LastHeartbeat: m.LastHeartbeat,
		Metadata:      meta,
	}, nil
}

// GormCommandRepository is the database-backed mirror of CommandRepository.
// Envelope and response share one row keyed by command ID, matching
// models.CommandModel (§6 "commands" table).
type GormCommandRepository struct {
	db *gorm.DB
}

func NewGormCommandRepository(db *gorm.DB) repository.CommandRepository {
	return &GormCommandRepository{db: db}
}

func (r *GormCommandRepository) SaveEnvelope(ctx context.Context, env *entity.CommandEnvelope) error {
	intentJSON, err := json.Marshal(env.ParsedIntent)
	if err != nil {
		return err
	}
	m := &models.CommandModel{
		CommandID:       env.ID,
		CorrelationID:   env.CorrelationID,
		FleetID:         env.FleetID,
		DeviceID:        env.DeviceID,
		NaturalLanguage: env.NaturalLanguage,
		ParsedIntent:    string(intentJSON),
		InitiatedBy:     env.InitiatedBy,
		TimeoutSecs:     env.TimeoutSecs,
		CreatedAt:       env.CreatedAt,
		Status:          string(entity.StatusPending),
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *GormCommandRepository) FindEnvelope(ctx context.Context, commandID string) (*entity.CommandEnvelope, error) {
	var m models.CommandModel
	if err := r.db.WithContext(ctx).First(&m, "command_id = ?", commandID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var intent *entity.ParsedIntent
	if m.ParsedIntent != "" && m.ParsedIntent != "null" {
		intent = &entity.ParsedIntent{}
		if err := json.Unmarshal([]byte(m.ParsedIntent), intent); err != nil {
			return nil, err
		}
	}
	return &entity.CommandEnvelope{
		ID:              m.CommandID,
		FleetID:         m.FleetID,
		DeviceID:        m.DeviceID,
		NaturalLanguage: m.NaturalLanguage,
		ParsedIntent:    intent,
		CorrelationID:   m.CorrelationID,
		InitiatedBy:     m.InitiatedBy,
		CreatedAt:       m.CreatedAt,
		TimeoutSecs:     m.TimeoutSecs,
	}, nil
}

func (r *GormCommandRepository) SaveResponse(ctx context.Context, resp *entity.CommandResponse) error {
	dataJSON, err := json.Marshal(resp.ResponseData)
	if err != nil {
		return err
	}
	respondedAt := resp.RespondedAt
	return r.db.WithContext(ctx).Model(&models.CommandModel{}).
		Where("command_id = ?", resp.CommandID).
		Updates(map[string]interface{}{
			"status":         string(resp.Status),
			"inference_tier": string(resp.InferenceTier),
			"response_text":  resp.ResponseText,
			"response_data":  string(dataJSON),
			"latency_ms":     resp.LatencyMs,
			"responded_at":   &respondedAt,
			"error":          resp.Error,
			"truncated":      resp.Truncated,
		}).Error
}

func (r *GormCommandRepository) FindResponse(ctx context.Context, commandID string) (*entity.CommandResponse, error) {
	var m models.CommandModel
	if err := r.db.WithContext(ctx).First(&m, "command_id = ?", commandID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if m.RespondedAt == nil {
		return nil, nil
	}
	data := make(map[string]interface{})
	if m.ResponseData != "" && m.ResponseData != "null" {
		if err := json.Unmarshal([]byte(m.ResponseData), &data); err != nil {
			return nil, err
		}
	}
	return &entity.CommandResponse{
		CommandID:     m.CommandID,
		CorrelationID: m.CorrelationID,
		DeviceID:      m.DeviceID,
		Status:        entity.CommandStatus(m.Status),
		InferenceTier: entity.InferenceTier(m.InferenceTier),
		ResponseText:  m.ResponseText,
		ResponseData:  data,
		LatencyMs:     m.LatencyMs,
		RespondedAt:   *m.RespondedAt,
		Error:         m.Error,
		Truncated:     m.Truncated,
	}, nil
}

func (r *GormCommandRepository) FindAll(ctx context.Context, deviceID string) ([]*entity.CommandEnvelope, error) {
	q := r.db.WithContext(ctx)
	if deviceID != "" {
		q = q.Where("device_id = ?", deviceID)
	}
	var rows []models.CommandModel
	if err := q.Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.CommandEnvelope, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		var intent *entity.ParsedIntent
		if m.ParsedIntent != "" && m.ParsedIntent != "null" {
			intent = &entity.ParsedIntent{}
			if err := json.Unmarshal([]byte(m.ParsedIntent), intent); err != nil {
				return nil, err
			}
		}
		out = append(out, &entity.CommandEnvelope{
			ID:              m.CommandID,
			FleetID:         m.FleetID,
			DeviceID:        m.DeviceID,
			NaturalLanguage: m.NaturalLanguage,
			ParsedIntent:    intent,
			CorrelationID:   m.CorrelationID,
			InitiatedBy:     m.InitiatedBy,
			CreatedAt:       m.CreatedAt,
			TimeoutSecs:     m.TimeoutSecs,
		})
	}
	return out, nil
}

// GormShadowRepository is the database-backed mirror of ShadowRepository.
type GormShadowRepository struct {
	db *gorm.DB
}

func NewGormShadowRepository(db *gorm.DB) repository.ShadowRepository {
	return &GormShadowRepository{db: db}
}

func (r *GormShadowRepository) Find(ctx context.Context, deviceID, shadowName string) (*entity.ShadowState, error) {
	var m models.ShadowModel
	err := r.db.WithContext(ctx).First(&m, "device_id = ? AND shadow_name = ?", deviceID, shadowName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return shadowToEntity(&m)
}

func (r *GormShadowRepository) Save(ctx context.Context, shadow *entity.ShadowState) error {
	m, err := shadowToModel(shadow)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *GormShadowRepository) ListNames(ctx context.Context, deviceID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.ShadowModel{}).
		Where("device_id = ?", deviceID).
		Pluck("shadow_name", &names).Error
	return names, err
}

func shadowToModel(s *entity.ShadowState) (*models.ShadowModel, error) {
	reportedJSON, err := json.Marshal(s.Reported)
	if err != nil {
		return nil, err
	}
	desiredJSON, err := json.Marshal(s.Desired)
	if err != nil {
		return nil, err
	}
	return &models.ShadowModel{
		DeviceID:    s.DeviceID,
		ShadowName:  s.ShadowName,
		Reported:    string(reportedJSON),
		Desired:     string(desiredJSON),
		Version:     s.Version,
		LastUpdated: s.LastUpdated,
	}, nil
}

func shadowToEntity(m *models.ShadowModel) (*entity.ShadowState, error) {
	reported := make(map[string]interface{})
	if m.Reported != "" && m.Reported != "null" {
		if err := json.Unmarshal([]byte(m.Reported), &reported); err != nil {
			return nil, err
		}
	}
	desired := make(map[string]interface{})
	if m.Desired != "" && m.Desired != "null" {
		if err := json.Unmarshal([]byte(m.Desired), &desired); err != nil {
			return nil, err
		}
	}
	return &entity.ShadowState{
		DeviceID:    m.DeviceID,
		ShadowName:  m.ShadowName,
		Reported:    reported,
		Desired:     desired,
		Version:     m.Version,
		LastUpdated: m.LastUpdated,
	}, nil
}

// GormTelemetryRepository is the database-backed mirror of
// TelemetryRepository.
type GormTelemetryRepository struct {
	db *gorm.DB
}

func NewGormTelemetryRepository(db *gorm.DB) repository.TelemetryRepository {
	return &GormTelemetryRepository{db: db}
}

func (r *GormTelemetryRepository) Append(ctx context.Context, reading *entity.TelemetryReading) error {
	valueJSON := []byte(nil)
	if len(reading.ValueJSON) > 0 {
		valueJSON = reading.ValueJSON
	}
	m := &models.TelemetryModel{
		DeviceID:     reading.DeviceID,
		Time:         reading.Time,
		MetricName:   reading.MetricName,
		ValueNumeric: reading.ValueNumeric,
		ValueText:    reading.ValueText,
		ValueJSON:    string(valueJSON),
		Unit:         reading.Unit,
		Source:       string(reading.Source),
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormTelemetryRepository) FindAll(ctx context.Context, deviceID string, limit int) ([]*entity.TelemetryReading, error) {
	q := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("time desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.TelemetryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.TelemetryReading, 0, len(rows))
	for i := range rows {
		m := &rows[i]
		out = append(out, &entity.TelemetryReading{
			DeviceID:     m.DeviceID,
			Time:         m.Time,
			MetricName:   m.MetricName,
			ValueNumeric: m.ValueNumeric,
			ValueText:    m.ValueText,
			ValueJSON:    []byte(m.ValueJSON),
			Unit:         m.Unit,
			Source:       entity.TelemetrySource(m.Source),
		})
	}
	return out, nil
}

// GormHeartbeatRepository is the database-backed mirror of
// HeartbeatRepository.
type GormHeartbeatRepository struct {
	db *gorm.DB
}

func NewGormHeartbeatRepository(db *gorm.DB) repository.HeartbeatRepository {
	return &GormHeartbeatRepository{db: db}
}

func (r *GormHeartbeatRepository) Record(ctx context.Context, hb *entity.Heartbeat) error {
	m := &models.HeartbeatModel{
		DeviceID:     hb.DeviceID,
		FleetID:      hb.FleetID,
		UptimeSecs:   hb.UptimeSecs,
		OllamaStatus: hb.OllamaStatus,
		CANStatus:    hb.CANStatus,
		AgentVersion: hb.AgentVersion,
		Timestamp:    hb.Timestamp,
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormHeartbeatRepository) Latest(ctx context.Context, deviceID string) (*entity.Heartbeat, error) {
	var m models.HeartbeatModel
	err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).Order("timestamp desc").First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity.Heartbeat{
		DeviceID:     m.DeviceID,
		FleetID:      m.FleetID,
		UptimeSecs:   m.UptimeSecs,
		OllamaStatus: m.OllamaStatus,
		CANStatus:    m.CANStatus,
		AgentVersion: m.AgentVersion,
		Timestamp:    m.Timestamp,
	}, nil
}

var (
	_ repository.DeviceRepository    = (*GormDeviceRepository)(nil)
	_ repository.CommandRepository   = (*GormCommandRepository)(nil)
	_ repository.ShadowRepository    = (*GormShadowRepository)(nil)
	_ repository.TelemetryRepository = (*GormTelemetryRepository)(nil)
	_ repository.HeartbeatRepository = (*GormHeartbeatRepository)(nil)
)
