package service

import (
	"listen/internal/data"
	"listen/internal/dto"
	"listen/internal/model"

	"gorm.io/gorm"
)

// PromptService 提示词管理，核心是「每个 kind 至多一个默认」的不变式
type PromptService struct {
	Data *data.Data
}

func NewPromptService(d *data.Data) *PromptService {
	return &PromptService{Data: d}
}

// List kind 升序、默认在前、id 升序
func (s *PromptService) List() ([]dto.PromptOut, error) {
	var rows []model.Prompt
	if err := s.Data.DB.Order("kind ASC, is_default DESC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]dto.PromptOut, 0, len(rows))
	for i := range rows {
		out = append(out, toPromptOut(&rows[i]))
	}
	return out, nil
}

func (s *PromptService) Get(id uint) (*dto.PromptOut, error) {
	var p model.Prompt
	if err := s.Data.DB.First(&p, id).Error; err != nil {
		return nil, err
	}
	out := toPromptOut(&p)
	return &out, nil
}

// Update 改名/改内容/设默认
// 设默认时必须先清掉同 kind 的其他默认，两步放一个事务里，
// 不然读-改-写之间挤进来另一个请求会出现双默认
func (s *PromptService) Update(id uint, req dto.PromptUpdateReq) (*dto.PromptOut, error) {
	var p model.Prompt
	if err := s.Data.DB.First(&p, id).Error; err != nil {
		return nil, err
	}

	err := s.Data.DB.Transaction(func(tx *gorm.DB) error {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Content != nil {
			p.Content = *req.Content
		}
		if req.IsDefault != nil {
			if *req.IsDefault {
				if err := tx.Model(&model.Prompt{}).
					Where("kind = ?", p.Kind).
					Update("is_default", false).Error; err != nil {
					return err
				}
			}
			p.IsDefault = *req.IsDefault
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}

	out := toPromptOut(&p)
	return &out, nil
}

func toPromptOut(p *model.Prompt) dto.PromptOut {
	return dto.PromptOut{
		ID:        p.ID,
		Name:      p.Name,
		Kind:      p.Kind,
		Content:   p.Content,
		IsDefault: p.IsDefault,
		UpdatedAt: p.UpdatedAt,
	}
}
