package entry

import (
	"fmt"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/nutrition"
)

// Kind 是日志条目的类别
type Kind string

const (
	KindFood     Kind = "food"
	KindExercise Kind = "exercise"
)

// ParseKind 解析路径或请求中的类别
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFood, KindExercise:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("未知的条目类别 '%s'", s)
	}
}

// LogEntry 是事件日志中的一条记录，写入后只能被删除
type LogEntry struct {
	ID     string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID string `gorm:"type:varchar(64);not null;index:idx_entry_user_date,priority:1" json:"userId"`
	Kind   Kind   `gorm:"type:varchar(16);not null" json:"kind"`
	Name   string `gorm:"type:varchar(200)" json:"name,omitempty"`

	// 饮食
	Calories float64 `json:"calories,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
	Fat      float64 `json:"fat,omitempty"`

	// 运动
	CaloriesBurned  float64 `json:"caloriesBurned,omitempty"`
	DurationMinutes float64 `json:"durationMinutes,omitempty"`
	Sets            int     `json:"sets,omitempty"`
	Reps            int     `json:"reps,omitempty"`

	EventTime time.Time `gorm:"not null" json:"eventTime"`
	// EventDate 是 EventTime 在引擎时区下的日期，决定条目计入哪一天的汇总
	EventDate string    `gorm:"type:varchar(10);not null;index:idx_entry_user_date,priority:2" json:"eventDate"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delta 返回这条记录对当天聚合的贡献
func (e *LogEntry) Delta() nutrition.Totals {
	switch e.Kind {
	case KindFood:
		return nutrition.Totals{
			Calories:    e.Calories,
			Protein:     e.Protein,
			Carbs:       e.Carbs,
			Fat:         e.Fat,
			FoodEntries: 1,
			EntryCount:  1,
		}
	case KindExercise:
		return nutrition.Totals{
			CaloriesBurned:  e.CaloriesBurned,
			ExerciseMinutes: e.DurationMinutes,
			ExerciseEntries: 1,
			EntryCount:      1,
		}
	default:
		return nutrition.Totals{}
	}
}

// AppendRequest 是追加一条记录的输入。
// ID 可以由调用方提供，用于安全地重试同一次追加。
type AppendRequest struct {
	ID   string `json:"id" validate:"max=64"`
	Kind Kind   `json:"kind" validate:"required,oneof=food exercise"`
	Name string `json:"name" validate:"max=200"`

	Calories float64 `json:"calories" validate:"gte=0"`
	Protein  float64 `json:"protein" validate:"gte=0"`
	Carbs    float64 `json:"carbs" validate:"gte=0"`
	Fat      float64 `json:"fat" validate:"gte=0"`

	CaloriesBurned  float64 `json:"caloriesBurned" validate:"gte=0"`
	DurationMinutes float64 `json:"durationMinutes" validate:"gte=0"`
	Sets            int     `json:"sets" validate:"gte=0"`
	Reps            int     `json:"reps" validate:"gte=0"`

	EventTime time.Time `json:"eventTime"`
	Notes     string    `json:"notes" validate:"max=1000"`
}

func (r *AppendRequest) toEntry(id, userID, eventDate string, now time.Time) LogEntry {
	e := LogEntry{
		ID:        id,
		UserID:    userID,
		Kind:      r.Kind,
		Name:      r.Name,
		EventTime: r.EventTime,
		EventDate: eventDate,
		Notes:     r.Notes,
		CreatedAt: now,
	}
	// 只保留与类别相关的字段
	switch r.Kind {
	case KindFood:
		e.Calories, e.Protein, e.Carbs, e.Fat = r.Calories, r.Protein, r.Carbs, r.Fat
	case KindExercise:
		e.CaloriesBurned, e.DurationMinutes = r.CaloriesBurned, r.DurationMinutes
		e.Sets, e.Reps = r.Sets, r.Reps
	}
	return e
}
