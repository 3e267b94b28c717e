package repository

import (
	"time"

	"github.com/okian/accolade/internal/domain/model"
)

// DefinitionRow is one achievement tier as stored.
type DefinitionRow struct {
	ID                string    `gorm:"column:id;primaryKey;size:36"`
	Name              string    `gorm:"column:name;size:200;not null"`
	Description       string    `gorm:"column:description;type:text"`
	GroupName         string    `gorm:"column:group_name;size:100;index"`
	CompetitionType   string    `gorm:"column:competition_type;size:100;not null"`
	Format            string    `gorm:"column:format;size:20"`
	ThresholdValue    float64   `gorm:"column:threshold_value;not null"`
	ThresholdOperator string    `gorm:"column:threshold_operator;size:4;not null"`
	ClassFilter       []string  `gorm:"column:class_filter;serializer:json"`
	TemplateKey       string    `gorm:"column:template_key;size:100;not null"`
	RenderValue       *float64  `gorm:"column:render_value"`
	DisplayOrder      int       `gorm:"column:display_order"`
	IsActive          bool      `gorm:"column:is_active;not null;index"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for DefinitionRow.
func (DefinitionRow) TableName() string { return "achievement_definitions" }

func (r DefinitionRow) toDomain() model.Definition {
	op := model.Operator(r.ThresholdOperator)
	if op == "" {
		op = model.OpGreaterOrEqual
	}
	return model.Definition{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Group:           r.GroupName,
		CompetitionType: r.CompetitionType,
		Format:          r.Format,
		Threshold:       r.ThresholdValue,
		Operator:        op,
		TemplateKey:     r.TemplateKey,
		RenderValue:     r.RenderValue,
		DisplayOrder:    r.DisplayOrder,
		Match:           model.NewMatcher(r.ClassFilter, r.CompetitionType),
	}
}

// TemplateRow is the artwork and overlay metadata for a template key.
type TemplateRow struct {
	Key           string    `gorm:"column:key;primaryKey;size:100"`
	Name          string    `gorm:"column:name;size:200"`
	BaseImagePath string    `gorm:"column:base_image_path;size:500;not null"`
	TextX         *int      `gorm:"column:font_x"`
	TextY         *int      `gorm:"column:font_y"`
	FontSize      *int      `gorm:"column:font_size"`
	TextColor     string    `gorm:"column:text_color;size:20"`
	IsActive      bool      `gorm:"column:is_active;not null"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for TemplateRow.
func (TemplateRow) TableName() string { return "achievement_templates" }

func (r TemplateRow) toDomain() model.Template {
	return model.Template{
		Key:           r.Key,
		Name:          r.Name,
		BaseImagePath: r.BaseImagePath,
		Text:          model.NewTextStyle(r.TextX, r.TextY, r.FontSize, r.TextColor),
	}
}

// ResultRow is a competition result owned by the results subsystem.
type ResultRow struct {
	ID               string    `gorm:"column:id;primaryKey;size:36"`
	CompetitorID     *string   `gorm:"column:competitor_id;size:36;index"`
	MemberID         string    `gorm:"column:meca_id;size:20"`
	CompetitionClass string    `gorm:"column:competition_class;size:100"`
	Format           string    `gorm:"column:format;size:20"`
	Score            *float64  `gorm:"column:score"`
	EventID          string    `gorm:"column:event_id;size:36"`
	SeasonID         string    `gorm:"column:season_id;size:36"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for ResultRow.
func (ResultRow) TableName() string { return "competition_results" }

func (r ResultRow) toDomain() model.CompetitionResult {
	out := model.CompetitionResult{
		ID:       r.ID,
		MemberID: r.MemberID,
		Class:    r.CompetitionClass,
		Format:   r.Format,
		Score:    r.Score,
		EventID:  r.EventID,
		SeasonID: r.SeasonID,
	}
	if r.CompetitorID != nil {
		out.CompetitorID = *r.CompetitorID
	}
	return out
}

// RecipientRow is an issued award. (competitor_id, group_name) is unique.
type RecipientRow struct {
	ID               string     `gorm:"column:id;primaryKey;size:36"`
	AchievementID    string     `gorm:"column:achievement_id;size:36;not null;index"`
	CompetitorID     string     `gorm:"column:competitor_id;size:36;not null;uniqueIndex:uq_recipient_group,priority:1"`
	GroupName        string     `gorm:"column:group_name;size:100;not null;uniqueIndex:uq_recipient_group,priority:2"`
	MemberID         string     `gorm:"column:meca_id;size:20"`
	AchievedValue    float64    `gorm:"column:achieved_value;not null"`
	AchievedAt       time.Time  `gorm:"column:achieved_at;not null"`
	ResultID         string     `gorm:"column:competition_result_id;size:36"`
	EventID          string     `gorm:"column:event_id;size:36"`
	SeasonID         string     `gorm:"column:season_id;size:36"`
	ImageURL         string     `gorm:"column:image_url;size:1000"`
	ImageGeneratedAt *time.Time `gorm:"column:image_generated_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for RecipientRow.
func (RecipientRow) TableName() string { return "achievement_recipients" }

func recipientRow(r model.Recipient) RecipientRow {
	row := RecipientRow{
		ID:            r.ID,
		AchievementID: r.AchievementID,
		CompetitorID:  r.CompetitorID,
		GroupName:     r.Group,
		MemberID:      r.MemberID,
		AchievedValue: r.AchievedValue,
		AchievedAt:    r.AchievedAt.UTC(),
		ResultID:      r.ResultID,
		EventID:       r.EventID,
		SeasonID:      r.SeasonID,
		ImageURL:      r.ImageURL,
	}
	if !r.ImageGeneratedAt.IsZero() {
		t := r.ImageGeneratedAt.UTC()
		row.ImageGeneratedAt = &t
	}
	return row
}

func (r RecipientRow) toDomain() model.Recipient {
	out := model.Recipient{
		ID:            r.ID,
		AchievementID: r.AchievementID,
		CompetitorID:  r.CompetitorID,
		Group:         r.GroupName,
		MemberID:      r.MemberID,
		AchievedValue: r.AchievedValue,
		AchievedAt:    r.AchievedAt.UTC(),
		ResultID:      r.ResultID,
		EventID:       r.EventID,
		SeasonID:      r.SeasonID,
		ImageURL:      r.ImageURL,
	}
	if r.ImageGeneratedAt != nil {
		out.ImageGeneratedAt = r.ImageGeneratedAt.UTC()
	}
	return out
}

func achievement(r RecipientRow, d DefinitionRow) model.Achievement {
	return model.Achievement{
		Recipient:   r.toDomain(),
		Name:        d.Name,
		Description: d.Description,
		TemplateKey: d.TemplateKey,
		Threshold:   d.ThresholdValue,
		RenderValue: d.RenderValue,
		Format:      d.Format,
	}
}

func models() []any {
	return []any{&DefinitionRow{}, &TemplateRow{}, &ResultRow{}, &RecipientRow{}}
}
