package profile

import (
	"context"
	"strings"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service 管理资料行的存在性。资料的其他字段由外部系统维护。
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// EnsureProfile 确保用户的资料行存在。displayName 非空时同时更新显示名。
func (s *Service) EnsureProfile(ctx context.Context, userID, displayName string) (*Profile, error) {
	const op = "profile.EnsureProfile"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}

	db := s.db.WithContext(ctx)
	p := Profile{UserID: userID, DisplayName: displayName}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
	if res.Error != nil {
		return nil, apperror.Wrap(res.Error, op).WithUser(userID)
	}
	if res.RowsAffected == 1 {
		s.logger.Info("创建用户资料", zap.String("user_id", userID))
	} else if displayName != "" {
		if err := db.Model(&Profile{}).Where("user_id = ?", userID).
			Update("display_name", displayName).Error; err != nil {
			return nil, apperror.Wrap(err, op).WithUser(userID)
		}
	}

	found, err := Find(db, userID)
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}
	return found, nil
}

// GetProfile 读取资料行，不存在时返回 NotFound
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	const op = "profile.GetProfile"
	p, err := Find(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}
	if p == nil {
		return nil, apperror.New(apperror.NotFound, op, "用户资料不存在").WithUser(userID)
	}
	return p, nil
}
