package repository

import (
	"context"
	stderrors "errors"

	"github.com/wfunc/slot-sim/internal/errors"
	"github.com/wfunc/slot-sim/internal/models"
	"gorm.io/gorm"
)

// WinLedgerRepository 中奖记录仓储接口
type WinLedgerRepository interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, record *models.SpinRecord) error
	FindByRoundID(ctx context.Context, roundID string) (*models.SpinRecord, error)
	FindBySession(ctx context.Context, sessionID string, pagination *Pagination) ([]*models.SpinRecord, error)
	FindJackpots(ctx context.Context, limit int) ([]*models.SpinRecord, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
	Summary(ctx context.Context, sessionID string) (*WinSummary, error)
	Trim(ctx context.Context, keep int) (int64, error)
}

// WinSummary 会话中奖汇总
type WinSummary struct {
	TotalWins   int64   `json:"total_wins"`
	TotalPayout float64 `json:"total_payout"`
	MaxPayout   float64 `json:"max_payout"`
	Jackpots    int64   `json:"jackpots"`
	Bonuses     int64   `json:"bonuses"`
}

type winLedgerRepo struct {
	*BaseRepo
}

// NewWinLedgerRepository 创建中奖记录仓储
func NewWinLedgerRepository(db *gorm.DB) WinLedgerRepository {
	return &winLedgerRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Migrate 建表
func (r *winLedgerRepo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(models.AllModels()...); err != nil {
		return errors.Wrap(err, errors.ErrLedgerWrite, "迁移中奖记录表失败")
	}
	return nil
}

// Create 写入一条中奖记录
func (r *winLedgerRepo) Create(ctx context.Context, record *models.SpinRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrapf(err, errors.ErrLedgerWrite, "round=%s", record.RoundID)
	}
	return nil
}

// FindByRoundID 按轮次查找
func (r *winLedgerRepo) FindByRoundID(ctx context.Context, roundID string) (*models.SpinRecord, error) {
	var record models.SpinRecord
	err := r.db.WithContext(ctx).Where("round_id = ?", roundID).First(&record).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.ErrNotFound, "中奖记录 %s 不存在", roundID)
		}
		return nil, errors.Wrap(err, errors.ErrLedgerQuery)
	}
	return &record, nil
}

// FindBySession 按会话分页查询，按序号倒序
func (r *winLedgerRepo) FindBySession(ctx context.Context, sessionID string, pagination *Pagination) ([]*models.SpinRecord, error) {
	if pagination == nil {
		pagination = NewPagination(1, 0)
	}

	query := r.db.WithContext(ctx).Model(&models.SpinRecord{}).
		Where("session_id = ?", sessionID).
		Session(&gorm.Session{})
	if err := query.Count(&pagination.Total).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerQuery)
	}

	var records []*models.SpinRecord
	err := query.Scopes(Paginate(pagination)).Order("sequence DESC").Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerQuery)
	}
	return records, nil
}

// FindJackpots 最近的Jackpot记录
func (r *winLedgerRepo) FindJackpots(ctx context.Context, limit int) ([]*models.SpinRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var records []*models.SpinRecord
	err := r.db.WithContext(ctx).
		Where("jackpot_won = ?", true).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerQuery)
	}
	return records, nil
}

// CountBySession 会话中奖次数
func (r *winLedgerRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SpinRecord{}).Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrLedgerQuery)
	}
	return count, nil
}

// Summary 会话中奖汇总，sessionID为空时统计全部
func (r *winLedgerRepo) Summary(ctx context.Context, sessionID string) (*WinSummary, error) {
	var summary WinSummary
	query := r.db.WithContext(ctx).Model(&models.SpinRecord{}).Select(
		"COUNT(*) AS total_wins, " +
			"COALESCE(SUM(payout), 0) AS total_payout, " +
			"COALESCE(MAX(payout), 0) AS max_payout, " +
			"COALESCE(SUM(CASE WHEN jackpot_won THEN 1 ELSE 0 END), 0) AS jackpots, " +
			"COALESCE(SUM(CASE WHEN bonus_triggered THEN 1 ELSE 0 END), 0) AS bonuses")
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}
	if err := query.Scan(&summary).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrLedgerQuery)
	}
	return &summary, nil
}

// Trim 只保留最新的keep条记录，返回删除条数；keep<=0不做任何事
func (r *winLedgerRepo) Trim(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	newest := r.db.WithContext(ctx).Model(&models.SpinRecord{}).Select("id").Order("id DESC").Limit(keep)
	result := r.db.WithContext(ctx).Where("id NOT IN (?)", newest).Delete(&models.SpinRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrLedgerWrite, "清理中奖记录失败")
	}
	return result.RowsAffected, nil
}
